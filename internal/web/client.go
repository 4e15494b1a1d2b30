package web

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one websocket connection attached to the hub.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	subscribed map[string]struct{}

	mu     sync.Mutex
	closed bool
}

type command struct {
	Action  string `json:"action"`
	Channel int64  `json:"channel,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		subscribed: make(map[string]struct{}),
	}
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debug().Err(err).Msg("web: websocket write failed")
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer c.hub.Detach(c)

	c.conn.SetReadLimit(1 << 12)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Warn().Err(err).Msg("web: websocket read failed")
			}
			return
		}
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd command) {
	topic := cmd.Topic
	if cmd.Channel != 0 {
		topic = ChannelTopic(cmd.Channel)
	}
	if topic == "" {
		return
	}
	switch strings.ToLower(cmd.Action) {
	case "subscribe":
		c.hub.subscribe(c, topic)
	case "unsubscribe":
		c.hub.unsubscribe(c, topic)
	}
}

// ServeWs upgrades the request and attaches the connection to hub. The
// repeatable "channel" query parameter subscribes to channel topics up
// front; without it the client follows every event.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	var topics []string
	for _, raw := range r.URL.Query()["channel"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == 0 {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		topics = append(topics, ChannelTopic(id))
	}
	if len(topics) == 0 {
		topics = []string{TopicAll}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn().Err(err).Msg("web: websocket upgrade failed")
		return
	}

	client := newClient(hub, conn)
	hub.Attach(client, topics)

	go client.writePump()
	go client.readPump()
}

// Handler returns ServeWs bound to hub.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(h, w, r)
	})
}
