package relay_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-social-server/relay"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, options ...relay.HubOption) *relay.Hub {
	t.Helper()
	hub := relay.NewHub(options...)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func chat(text string) relay.Event {
	data, _ := json.Marshal(map[string]string{"text": text})
	return relay.Event{Name: relay.EventChat, Data: data}
}

func receive(t *testing.T, c *relay.Client) relay.Event {
	t.Helper()
	select {
	case event, ok := <-c.Messages():
		require.True(t, ok, "client channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return relay.Event{}
	}
}

func requireNoEvent(t *testing.T, c *relay.Client) {
	t.Helper()
	select {
	case event, ok := <-c.Messages():
		if ok {
			t.Fatalf("unexpected event %s", string(event.Data))
		}
	default:
	}
}

func TestHubBroadcastAndDisconnect(t *testing.T) {
	hub := startHub(t)
	a, b, c := hub.Connect(), hub.Connect(), hub.Connect()
	require.Equal(t, 3, hub.Count())

	hub.Broadcast(chat("hi"))
	for _, client := range []*relay.Client{a, b, c} {
		event := receive(t, client)
		require.Equal(t, relay.EventChat, event.Name)
		require.JSONEq(t, `{"text":"hi"}`, string(event.Data))
		requireNoEvent(t, client)
	}

	hub.Disconnect(b)
	require.Equal(t, 2, hub.Count())
	_, open := <-b.Messages()
	require.False(t, open)

	hub.Broadcast(chat("again"))
	require.JSONEq(t, `{"text":"again"}`, string(receive(t, a).Data))
	require.JSONEq(t, `{"text":"again"}`, string(receive(t, c).Data))
	requireNoEvent(t, a)
	requireNoEvent(t, c)
}

func TestHubDisconnectTwiceIsHarmless(t *testing.T) {
	hub := startHub(t)
	a := hub.Connect()
	hub.Disconnect(a)
	hub.Disconnect(a)
	require.Equal(t, 0, hub.Count())
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := startHub(t, relay.WithSendBuffer(1))
	slow := hub.Connect()
	fast := hub.Connect()

	hub.Broadcast(chat("one"))
	require.JSONEq(t, `{"text":"one"}`, string(receive(t, fast).Data))
	hub.Broadcast(chat("two"))
	require.JSONEq(t, `{"text":"two"}`, string(receive(t, fast).Data))

	require.JSONEq(t, `{"text":"one"}`, string(receive(t, slow).Data))
	requireNoEvent(t, slow)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := relay.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	a := hub.Connect()
	cancel()
	<-stopped

	_, open := <-a.Messages()
	require.False(t, open)
	require.Nil(t, hub.Connect())
	require.Equal(t, 0, hub.Count())
	hub.Broadcast(chat("ignored"))
}
