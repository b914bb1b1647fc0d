// Package relay fans chat events out to every connected websocket.
//
// The set of connected clients is owned by the goroutine running Hub.Run.
// Other goroutines only talk to it through Connect, Broadcast and Disconnect.
package relay

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EventChat = "chat"

	defaultSendBuffer = 64
)

// Event is the frame exchanged with clients in both directions. Data is relayed untouched.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Client is one registered connection. Messages is closed when the client is disconnected
// or the hub stops.
type Client struct {
	id   string
	send chan Event
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Messages() <-chan Event {
	return c.send
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	count      chan chan int
	done       chan struct{}
	sendBuffer int
}

type HubOption func(*Hub)

// WithSendBuffer sets how many events may queue for a slow client before new ones are dropped.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		h.sendBuffer = n
	}
}

func NewHub(options ...HubOption) *Hub {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		sendBuffer: defaultSendBuffer,
	}
	for _, opt := range options {
		opt(h)
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = defaultSendBuffer
	}
	return h
}

// Run processes hub messages until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*Client]struct{})
	defer func() {
		for c := range clients {
			close(c.send)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			log.Debug().Str("client", c.id).Int("clients", len(clients)).Msg("relay client connected")
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				log.Debug().Str("client", c.id).Int("clients", len(clients)).Msg("relay client disconnected")
			}
		case event := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- event:
				default:
					log.Warn().Str("client", c.id).Msg("relay client buffer full, event dropped")
				}
			}
		case reply := <-h.count:
			reply <- len(clients)
		}
	}
}

// Connect registers a new client. It returns nil once the hub has stopped.
func (h *Hub) Connect() *Client {
	c := &Client{id: uuid.NewString(), send: make(chan Event, h.sendBuffer)}
	select {
	case h.register <- c:
		return c
	case <-h.done:
		return nil
	}
}

func (h *Hub) Disconnect(c *Client) {
	if c == nil {
		return
	}
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues event for every client connected at the time the hub handles it,
// the sender included.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
