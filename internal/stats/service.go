package stats

import (
	"context"
	"time"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
)

// Publisher announces completed fetches.
type Publisher interface {
	Publish(ctx context.Context, event models.StatsEvent) error
}

// Service is the goroutine-safe front of the fetchers. It keeps one fetcher
// per channel (or per post) on the loop and blocks callers until the fetch
// they started has completed.
type Service struct {
	loop      *Loop
	transport Transport
	directory Directory
	publisher Publisher
	opts      Options
	log       *logger.Logger

	// confined to the loop
	statistics map[int64]*Statistics
	boosts     map[int64]*Boosts
	posts      map[models.RecentPostID]*MessageStatistics
	forwards   map[models.RecentPostID]*PublicForwards
	closed     bool
}

// NewService creates a service running its fetchers on loop. publisher may be nil.
func NewService(loop *Loop, transport Transport, directory Directory, publisher Publisher, opts Options) *Service {
	return &Service{
		loop:       loop,
		transport:  transport,
		directory:  directory,
		publisher:  publisher,
		opts:       opts,
		log:        logger.Get(),
		statistics: make(map[int64]*Statistics),
		boosts:     make(map[int64]*Boosts),
		posts:      make(map[models.RecentPostID]*MessageStatistics),
		forwards:   make(map[models.RecentPostID]*PublicForwards),
	}
}

// ChannelStatistics fetches a fresh snapshot of a broadcast channel.
func (s *Service) ChannelStatistics(ctx context.Context, channel models.Channel) (models.ChannelStatistics, error) {
	if channel.Megagroup {
		return models.ChannelStatistics{}, ErrMegagroup
	}
	result, err := await(ctx, s, func(reply func(models.ChannelStatistics, error)) error {
		st := s.statisticsFor(channel)
		st.Request(func(err error) {
			reply(st.ChannelStats(), err)
		})
		return nil
	})
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventChannelStats, channel, result)
	return result, nil
}

// SupergroupStatistics fetches a fresh snapshot of a supergroup.
func (s *Service) SupergroupStatistics(ctx context.Context, channel models.Channel) (models.SupergroupStatistics, error) {
	if !channel.Megagroup {
		return models.SupergroupStatistics{}, ErrBroadcast
	}
	result, err := await(ctx, s, func(reply func(models.SupergroupStatistics, error)) error {
		st := s.statisticsFor(channel)
		st.Request(func(err error) {
			reply(st.SupergroupStats(), err)
		})
		return nil
	})
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventSupergroupStats, channel, result)
	return result, nil
}

// Zoom expands the graph behind token. Zooms of one channel run one at a time.
func (s *Service) Zoom(ctx context.Context, channel models.Channel, token string, x int64) (models.StatisticalGraph, error) {
	result, err := await(ctx, s, func(reply func(models.StatisticalGraph, error)) error {
		s.statisticsFor(channel).RequestZoom(token, x, reply)
		return nil
	})
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventGraph, channel, result)
	return result, nil
}

// MessageStatistics fetches the statistics of channel post msgID.
func (s *Service) MessageStatistics(ctx context.Context, channel models.Channel, msgID int) (models.MessageStatistics, error) {
	result, err := s.postStatistics(ctx, channel, models.MessagePost(channel.Peer(), msgID))
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventMessageStats, channel, result)
	return result, nil
}

// StoryStatistics fetches the statistics of channel story storyID.
func (s *Service) StoryStatistics(ctx context.Context, channel models.Channel, storyID int) (models.MessageStatistics, error) {
	result, err := s.postStatistics(ctx, channel, models.StoryPost(channel.Peer(), storyID))
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventStoryStats, channel, result)
	return result, nil
}

// ForwardsPage loads the page of public forwards of target following token.
func (s *Service) ForwardsPage(ctx context.Context, channel models.Channel, target models.RecentPostID, token models.ForwardsToken) (models.PublicForwardsSlice, error) {
	if channel.Megagroup {
		return models.PublicForwardsSlice{}, ErrMegagroup
	}
	result, err := await(ctx, s, func(reply func(models.PublicForwardsSlice, error)) error {
		f, ok := s.forwards[target]
		if !ok {
			f = NewPublicForwards(channel, target, s.transport, s.directory, s.loop, s.opts)
			s.forwards[target] = f
		}
		if f.Loading() {
			return ErrBusy
		}
		f.Request(token, reply)
		return nil
	})
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventForwards, channel, result)
	return result, nil
}

// BoostStatus fetches the boost status with the first pages of boosts and gifts.
func (s *Service) BoostStatus(ctx context.Context, channel models.Channel) (models.BoostStatus, error) {
	result, err := await(ctx, s, func(reply func(models.BoostStatus, error)) error {
		b := s.boostsFor(channel)
		return b.Request(func(err error) {
			reply(b.BoostStatus(), err)
		})
	})
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventBoostStatus, channel, result)
	return result, nil
}

// BoostsPage loads the page of boosts following token.
func (s *Service) BoostsPage(ctx context.Context, channel models.Channel, token models.BoostsToken) (models.BoostsListSlice, error) {
	if channel.ID == 0 {
		return models.BoostsListSlice{}, ErrNoChannel
	}
	if channel.Megagroup {
		return models.BoostsListSlice{}, ErrMegagroup
	}
	result, err := await(ctx, s, func(reply func(models.BoostsListSlice, error)) error {
		return s.boostsFor(channel).RequestBoosts(token, reply)
	})
	if err != nil {
		return result, err
	}
	s.publish(ctx, models.EventBoosts, channel, result)
	return result, nil
}

// Close tears every fetcher down. Calls made afterwards fail with ErrClosed.
func (s *Service) Close(ctx context.Context) error {
	return s.loop.Do(ctx, func() {
		if s.closed {
			return
		}
		s.closed = true
		for _, st := range s.statistics {
			st.Close()
		}
		for _, b := range s.boosts {
			b.Close()
		}
		for _, m := range s.posts {
			m.Close()
		}
		for _, f := range s.forwards {
			f.Close()
		}
		s.log.Info().
			Int("statistics", len(s.statistics)).
			Int("boosts", len(s.boosts)).
			Int("posts", len(s.posts)).
			Int("forwards", len(s.forwards)).
			Msg("stats: service closed")
	})
}

func (s *Service) postStatistics(ctx context.Context, channel models.Channel, target models.RecentPostID) (models.MessageStatistics, error) {
	return await(ctx, s, func(reply func(models.MessageStatistics, error)) error {
		m, ok := s.posts[target]
		if !ok {
			if target.IsStory() {
				m = NewStoryStatistics(channel, target.StoryID.Story, s.transport, s.directory, s.loop, s.opts)
			} else {
				m = NewMessageStatistics(channel, target.MessageID.Msg, s.transport, s.directory, s.loop, s.opts)
			}
			s.posts[target] = m
		}
		return m.Request(func(result models.MessageStatistics) {
			reply(result, nil)
		})
	})
}

func (s *Service) statisticsFor(channel models.Channel) *Statistics {
	st, ok := s.statistics[channel.ID]
	if !ok {
		st = NewStatistics(channel, s.transport, s.directory, s.loop, s.opts)
		s.statistics[channel.ID] = st
	}
	return st
}

func (s *Service) boostsFor(channel models.Channel) *Boosts {
	b, ok := s.boosts[channel.ID]
	if !ok {
		b = NewBoosts(channel, s.transport, s.directory, s.loop, s.opts)
		s.boosts[channel.ID] = b
	}
	return b
}

func (s *Service) publish(ctx context.Context, kind models.StatsEventType, channel models.Channel, payload any) {
	if s.publisher == nil {
		return
	}
	event := models.StatsEvent{
		Type:      kind,
		ChannelID: channel.ID,
		At:        time.Now().UTC(),
		Payload:   payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("type", string(kind)).Int64("channel_id", channel.ID).Msg("stats: failed to publish event")
	}
}

// await runs start on the loop and blocks until reply is called, ctx is done
// or the loop stops. An error returned by start is reported as the outcome.
func await[T any](ctx context.Context, s *Service, start func(reply func(T, error)) error) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	send := func(o outcome) {
		select {
		case ch <- o:
		default:
		}
	}

	var zero T
	err := s.loop.Do(ctx, func() {
		if s.closed {
			send(outcome{err: ErrClosed})
			return
		}
		if err := start(func(v T, err error) { send(outcome{value: v, err: err}) }); err != nil {
			send(outcome{err: err})
		}
	})
	if err != nil {
		return zero, err
	}

	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.loop.closed:
		return zero, ErrClosed
	}
}
