package stats

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

// Statistics fetches the aggregate statistics of a channel or supergroup and
// expands their graphs on demand.
type Statistics struct {
	*sender
	directory Directory
	zoom      zoomQueue

	channelStats    models.ChannelStatistics
	supergroupStats models.SupergroupStatistics
}

// NewStatistics creates a fetcher for channel.
func NewStatistics(channel models.Channel, transport Transport, directory Directory, loop *Loop, opts Options) *Statistics {
	return &Statistics{
		sender:    newSender(channel, transport, loop, opts),
		directory: directory,
	}
}

// Request fetches a fresh snapshot and calls done once with the outcome.
// The previous snapshot is replaced only on success.
func (s *Statistics) Request(done func(error)) {
	input := &tg.InputChannel{ChannelID: s.channel.ID, AccessHash: s.channel.AccessHash}

	if !s.channel.Megagroup {
		s.makeRequest(invoke(
			func(ctx context.Context, api *tg.Client) (*tg.StatsBroadcastStats, error) {
				return api.StatsGetBroadcastStats(ctx, &tg.StatsGetBroadcastStatsRequest{Channel: input})
			},
			func(result *tg.StatsBroadcastStats) {
				s.channelStats = channelStatsFromTL(result)
				done(nil)
			},
			done,
		))
		return
	}

	s.makeRequest(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.StatsMegagroupStats, error) {
			return api.StatsGetMegagroupStats(ctx, &tg.StatsGetMegagroupStatsRequest{Channel: input})
		},
		func(result *tg.StatsMegagroupStats) {
			s.supergroupStats = supergroupStatsFromTL(result)
			if s.directory != nil {
				s.directory.ProcessUsers(result.Users)
			}
			done(nil)
		},
		done,
	))
}

// RequestZoom loads the expanded graph behind token. Zoom loads run one at a
// time in call order; a failure is reported to done and the next load starts.
func (s *Statistics) RequestZoom(token string, x int64, done func(models.StatisticalGraph, error)) {
	s.zoom.Enqueue(func(finish func()) {
		if s.closed {
			finish()
			return
		}
		req := &tg.StatsLoadAsyncGraphRequest{Token: token}
		if x != 0 {
			req.SetX(x)
		}
		s.makeRequest(invoke(
			func(ctx context.Context, api *tg.Client) (tg.StatsGraphClass, error) {
				return api.StatsLoadAsyncGraph(ctx, req)
			},
			func(result tg.StatsGraphClass) {
				done(graphFromTL(result), nil)
				finish()
			},
			func(err error) {
				done(models.StatisticalGraph{}, err)
				finish()
			},
		))
	})
}

// ChannelStats returns the last broadcast channel snapshot.
func (s *Statistics) ChannelStats() models.ChannelStatistics {
	return s.channelStats
}

// SupergroupStats returns the last supergroup snapshot.
func (s *Statistics) SupergroupStats() models.SupergroupStatistics {
	return s.supergroupStats
}

// Close tears the fetcher down and drops queued zoom loads.
func (s *Statistics) Close() {
	s.zoom.Reset()
	s.sender.Close()
}
