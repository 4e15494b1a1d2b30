package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/stats"
)

// InvokerSource hands out the invoker serving a shard; shard 0 is the main
// connection.
type InvokerSource interface {
	Invoker(ctx context.Context, shard models.ShardID) (tg.Invoker, error)
}

// ShardReleaser is implemented by sources that can drop a shard connection
// once no statistics request uses it.
type ShardReleaser interface {
	ReleaseShard(shard models.ShardID)
}

// Transport sends statistics calls over the telegram connection.
// Every call waits on the rate limiter first; FLOOD_WAIT answers pause the
// limiter and are reported to the caller as they are.
type Transport struct {
	*Ledger

	source      InvokerSource
	rateLimiter *RateLimiter
	log         *logger.Logger
	wg          sync.WaitGroup
}

var _ stats.Transport = (*Transport)(nil)

// NewTransport creates a transport over source.
func NewTransport(source InvokerSource, rateLimiter *RateLimiter) *Transport {
	if rateLimiter == nil {
		rateLimiter = DefaultRateLimiter()
	}
	t := &Transport{
		Ledger:      NewLedger(),
		source:      source,
		rateLimiter: rateLimiter,
		log:         logger.Get(),
	}
	if r, ok := source.(ShardReleaser); ok {
		t.OnIdle(r.ReleaseShard)
	}
	return t
}

// StatsShard routes statistics of channel to the datacenter the server
// reported for them.
func (t *Transport) StatsShard(channel models.Channel) models.ShardID {
	return channel.StatsDC
}

// Dispatch runs call on its own goroutine and reports the outcome through
// complete exactly once. id stays pending until the call returns.
func (t *Transport) Dispatch(ctx context.Context, shard models.ShardID, id models.RequestID, call stats.Call, complete func(error)) {
	t.begin(id)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := t.invoke(ctx, shard, id, call)
		t.finish(id)
		complete(err)
	}()
}

// Wait blocks until every dispatched call has returned.
func (t *Transport) Wait() {
	t.wg.Wait()
}

func (t *Transport) invoke(ctx context.Context, shard models.ShardID, id models.RequestID, call stats.Call) error {
	if err := t.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	inv, err := t.source.Invoker(ctx, shard)
	if err != nil {
		return fmt.Errorf("get invoker for shard %d: %w", shard, err)
	}

	t.log.Debug().Int("shard", int(shard)).Int64("request_id", int64(id)).Msg("telegram: dispatching request")
	err = call(ctx, inv)
	if d, ok := tgerr.AsFloodWait(err); ok {
		t.log.Warn().Dur("wait", d).Int("shard", int(shard)).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
		t.rateLimiter.SetFloodWait(d)
	}
	return err
}
