package stats

import (
	"context"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
)

// Options tune fetcher behaviour. Zero values select the defaults.
type Options struct {
	// Schedule drives the periodic sweep of finished requests.
	Schedule      Schedule
	SweepInterval time.Duration

	ForwardsLimit    int
	BoostsFirstSlice int
	BoostsLimit      int

	// LinkDomain prefixes internal links such as gift codes.
	LinkDomain string
}

// Default option values.
const (
	DefaultForwardsLimit    = 100
	DefaultBoostsFirstSlice = 10
	DefaultBoostsLimit      = 40
	DefaultLinkDomain       = "t.me"
)

func (o Options) withDefaults(loop *Loop) Options {
	if o.Schedule == nil {
		o.Schedule = LoopSchedule(loop)
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.ForwardsLimit <= 0 {
		o.ForwardsLimit = DefaultForwardsLimit
	}
	if o.BoostsFirstSlice <= 0 {
		o.BoostsFirstSlice = DefaultBoostsFirstSlice
	}
	if o.BoostsLimit <= 0 {
		o.BoostsLimit = DefaultBoostsLimit
	}
	if o.LinkDomain == "" {
		o.LinkDomain = DefaultLinkDomain
	}
	return o
}

// sender dispatches calls on behalf of one fetcher and owns their lifecycle.
// Everything except construction runs on the loop.
type sender struct {
	channel   models.Channel
	transport Transport
	loop      *Loop
	tracker   *Tracker
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	log    *logger.Logger
}

func newSender(channel models.Channel, transport Transport, loop *Loop, opts Options) *sender {
	opts = opts.withDefaults(loop)
	ctx, cancel := context.WithCancel(context.Background())
	return &sender{
		channel:   channel,
		transport: transport,
		loop:      loop,
		tracker:   NewTracker(transport, opts.Schedule, opts.SweepInterval),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.Get(),
	}
}

// Channel returns the channel the fetcher works on.
func (s *sender) Channel() models.Channel {
	return s.channel
}

// makeRequest sends call to the channel's statistics shard and tracks it
// there until the transport reports it finished.
func (s *sender) makeRequest(call Call, complete func(error)) models.RequestID {
	id := s.transport.AllocateRequestID()
	shard := s.transport.StatsShard(s.channel)
	if shard != 0 && !s.closed {
		s.tracker.Register(shard, id)
	}
	s.dispatch(shard, id, call, complete)
	return id
}

// request sends call over the main connection without tracking.
func (s *sender) request(call Call, complete func(error)) models.RequestID {
	id := s.transport.AllocateRequestID()
	s.dispatch(0, id, call, complete)
	return id
}

func (s *sender) dispatch(shard models.ShardID, id models.RequestID, call Call, complete func(error)) {
	if s.closed {
		return
	}
	s.transport.Dispatch(s.ctx, shard, id, call, func(err error) {
		s.loop.Post(func() {
			if s.closed {
				return
			}
			if err != nil {
				s.log.Warn().
					Int64("channel_id", s.channel.ID).
					Int("shard", int(shard)).
					Int64("request_id", int64(id)).
					Str("error", ErrorType(err)).
					Msg("stats: request failed")
			}
			complete(err)
		})
	})
}

// Close tears the fetcher down: pending continuations are dropped, in-flight
// invocations are cancelled and every tracked request is released.
func (s *sender) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.tracker.Teardown()
}

// Closed reports whether Close has been called.
func (s *sender) Closed() bool {
	return s.closed
}

// invoke adapts a typed API call to the Call/complete pair used by dispatch.
func invoke[T any](fn func(ctx context.Context, api *tg.Client) (T, error), done func(T), fail func(error)) (Call, func(error)) {
	var result T
	call := func(ctx context.Context, inv tg.Invoker) error {
		r, err := fn(ctx, tg.NewClient(inv))
		if err != nil {
			return err
		}
		result = r
		return nil
	}
	complete := func(err error) {
		if err != nil {
			fail(err)
			return
		}
		done(result)
	}
	return call, complete
}
