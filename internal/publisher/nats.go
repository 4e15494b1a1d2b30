// Package publisher delivers statistics events to the message bus and to
// live subscribers.
package publisher

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/stats"
)

// SubjectPrefix prefixes the subject of every statistics event.
const SubjectPrefix = "stats."

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher publishes statistics events to JetStream.
type NATSPublisher struct {
	js NATSClient
}

var _ stats.Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(client NATSClient) *NATSPublisher {
	return &NATSPublisher{js: client}
}

// Subject returns the subject events of type t are published on.
func Subject(t models.StatsEventType) string {
	return SubjectPrefix + string(t)
}

// Publish sends event on stats.<type>, assigning it an id if it has none.
func (p *NATSPublisher) Publish(ctx context.Context, event models.StatsEvent) error {
	event = withID(event)
	if err := p.js.Publish(ctx, Subject(event.Type), event); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

func withID(event models.StatsEvent) models.StatsEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return event
}
