package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/models"
)

func testClient(hub *Hub) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, 4),
		subscribed: make(map[string]struct{}),
	}
}

func statsEvent(channelID int64) models.StatsEvent {
	return models.StatsEvent{
		ID:        "evt-1",
		Type:      models.EventChannelStats,
		ChannelID: channelID,
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
		return Message{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message: %s", data)
		}
	default:
	}
}

func TestHub_PublishByChannelTopic(t *testing.T) {
	hub := NewHub()
	first := testClient(hub)
	second := testClient(hub)
	all := testClient(hub)
	hub.Attach(first, []string{ChannelTopic(1001)})
	hub.Attach(second, []string{ChannelTopic(2002)})
	hub.Attach(all, []string{TopicAll})

	require.NoError(t, hub.Publish(context.Background(), statsEvent(1001)))

	msg := receive(t, first)
	assert.Equal(t, "channel:1001", msg.Topic)
	assert.Equal(t, models.EventChannelStats, msg.Event.Type)
	assert.Equal(t, int64(1001), receive(t, all).Event.ChannelID)
	assertNothing(t, second)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	c := testClient(hub)
	hub.Attach(c, []string{ChannelTopic(1001)})

	c.handle(command{Action: "unsubscribe", Channel: 1001})
	require.NoError(t, hub.Publish(context.Background(), statsEvent(1001)))
	assertNothing(t, c)

	c.handle(command{Action: "subscribe", Channel: 1001})
	require.NoError(t, hub.Publish(context.Background(), statsEvent(1001)))
	assert.Equal(t, "channel:1001", receive(t, c).Topic)
}

func TestHub_DetachClosesClient(t *testing.T) {
	hub := NewHub()
	c := testClient(hub)
	hub.Attach(c, []string{TopicAll})
	require.Equal(t, 1, hub.Clients())

	hub.Detach(c)
	hub.Detach(c)

	assert.Zero(t, hub.Clients())
	_, ok := <-c.send
	assert.False(t, ok, "send channel should be closed")
	require.NoError(t, hub.Publish(context.Background(), statsEvent(1001)))
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 1), subscribed: make(map[string]struct{})}
	hub.Attach(c, []string{TopicAll})

	require.NoError(t, hub.Publish(context.Background(), statsEvent(1)))
	require.NoError(t, hub.Publish(context.Background(), statsEvent(2)))

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServeWs_StreamsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?channel=1001"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), statsEvent(1001)))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "channel:1001", msg.Topic)
	assert.Equal(t, "evt-1", msg.Event.ID)
}

func TestServeWs_InvalidChannel(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?channel=abc", nil)

	ServeWs(hub, rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, hub.Clients())
}
