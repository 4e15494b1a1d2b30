package publisher

import (
	"context"
	"errors"

	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/stats"
)

// Fanout hands every event to each of its publishers. All of them see the
// same event id.
type Fanout struct {
	publishers []stats.Publisher
}

var _ stats.Publisher = (*Fanout)(nil)

// NewFanout combines publishers, skipping nil ones.
func NewFanout(publishers ...stats.Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish delivers event everywhere and joins the failures.
func (f *Fanout) Publish(ctx context.Context, event models.StatsEvent) error {
	event = withID(event)
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
