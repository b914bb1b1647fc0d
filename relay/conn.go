package relay

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

// Serve registers conn with the hub and pumps events until the socket closes.
// Frames other than chat, and frames that are not valid JSON, are ignored.
func (h *Hub) Serve(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	client := h.Connect()
	if client == nil {
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// The channel also closes when the hub stops; closing the socket unblocks Receive below.
		defer func() {
			_ = conn.Close()
		}()
		for event := range client.Messages() {
			if err := websocket.JSON.Send(conn, event); err != nil {
				log.Debug().Err(err).Str("client", client.ID()).Msg("relay write failed")
				return
			}
		}
	}()

	for {
		var event Event
		if err := websocket.JSON.Receive(conn, &event); err != nil {
			if isMalformedFrame(err) {
				continue
			}
			break
		}
		if event.Name != EventChat {
			continue
		}
		h.Broadcast(event)
	}

	h.Disconnect(client)
	<-writerDone
}

func isMalformedFrame(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
