// Package web streams statistics events to websocket subscribers.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/stats"
)

// TopicAll receives every event regardless of channel.
const TopicAll = "stats"

// ChannelTopic returns the topic carrying events of one channel.
func ChannelTopic(channelID int64) string {
	return fmt.Sprintf("channel:%d", channelID)
}

// Message is the frame written to subscribers.
type Message struct {
	Topic string            `json:"topic"`
	Event models.StatsEvent `json:"event"`
}

// Hub keeps websocket clients and the topics they follow.
type Hub struct {
	topics  map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	mu      sync.RWMutex
	log     *logger.Logger
}

var _ stats.Publisher = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		log:     logger.Get(),
	}
}

// Attach registers c and subscribes it to topics.
func (h *Hub) Attach(c *Client, topics []string) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	for _, topic := range topics {
		if strings.TrimSpace(topic) == "" {
			continue
		}
		h.subscribe(c, topic)
	}
}

// Detach unsubscribes c from everything and closes it.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

// Clients returns the number of attached clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	c.subscribed[topic] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, topic)
	delete(c.subscribed, topic)
}

func (h *Hub) dropLocked(c *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) detachLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for topic := range c.subscribed {
		h.dropLocked(c, topic)
	}
	delete(h.clients, c)
	c.close()
}

// Publish delivers event to subscribers of its channel topic and of TopicAll.
// Clients whose buffer is full are dropped.
func (h *Hub) Publish(_ context.Context, event models.StatsEvent) error {
	topic := ChannelTopic(event.ChannelID)
	data, err := json.Marshal(Message{Topic: topic, Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	targets := make(map[*Client]struct{})
	for _, t := range []string{topic, TopicAll} {
		for c := range h.topics[t] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()

	for c := range targets {
		if !c.enqueue(data) {
			h.log.Warn().Str("topic", topic).Msg("web: send buffer full, dropping client")
			go h.Detach(c)
		}
	}
	return nil
}
