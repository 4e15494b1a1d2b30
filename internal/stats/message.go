package stats

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

// MessageStatistics assembles the statistics of a single channel post or
// story: its graphs, its counters and the first page of public forwards.
type MessageStatistics struct {
	*sender
	forwards   *PublicForwards
	target     models.RecentPostID
	running    bool
	firstSlice models.PublicForwardsSlice
}

// NewMessageStatistics creates an orchestrator for message msgID of channel.
func NewMessageStatistics(channel models.Channel, msgID int, transport Transport, directory Directory, loop *Loop, opts Options) *MessageStatistics {
	return newMessageStatistics(channel, models.MessagePost(channel.Peer(), msgID), transport, directory, loop, opts)
}

// NewStoryStatistics creates an orchestrator for story storyID of channel.
func NewStoryStatistics(channel models.Channel, storyID int, transport Transport, directory Directory, loop *Loop, opts Options) *MessageStatistics {
	return newMessageStatistics(channel, models.StoryPost(channel.Peer(), storyID), transport, directory, loop, opts)
}

func newMessageStatistics(channel models.Channel, target models.RecentPostID, transport Transport, directory Directory, loop *Loop, opts Options) *MessageStatistics {
	return &MessageStatistics{
		sender:   newSender(channel, transport, loop, opts),
		forwards: NewPublicForwards(channel, target, transport, directory, loop, opts),
		target:   target,
	}
}

// Request runs the whole sequence and calls done exactly once with the
// combined result. Sub-steps that fail degrade to empty values.
//
// Supergroups have no post statistics: Request returns ErrMegagroup and
// dispatches nothing. ErrBusy is returned while a previous run is going.
func (m *MessageStatistics) Request(done func(models.MessageStatistics)) error {
	if m.channel.Megagroup {
		return ErrMegagroup
	}
	if m.running {
		return ErrBusy
	}
	m.running = true
	finish := func(result models.MessageStatistics) {
		m.running = false
		done(result)
	}
	if m.target.IsStory() {
		m.requestStoryStats(finish)
	} else {
		m.requestMessageStats(finish)
	}
	return nil
}

// FirstSlice returns the first page of public forwards of the last run.
func (m *MessageStatistics) FirstSlice() models.PublicForwardsSlice {
	return m.firstSlice
}

// Forwards returns the pager used for the public forwards of the post.
func (m *MessageStatistics) Forwards() *PublicForwards {
	return m.forwards
}

// Close tears the orchestrator and its forwards pager down.
func (m *MessageStatistics) Close() {
	m.forwards.Close()
	m.sender.Close()
}

func (m *MessageStatistics) requestMessageStats(done func(models.MessageStatistics)) {
	input := &tg.InputChannel{ChannelID: m.channel.ID, AccessHash: m.channel.AccessHash}
	m.makeRequest(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.StatsMessageStats, error) {
			return api.StatsGetMessageStats(ctx, &tg.StatsGetMessageStatsRequest{
				Channel: input,
				MsgID:   m.target.MessageID.Msg,
			})
		},
		func(result *tg.StatsMessageStats) {
			m.requestMessageCounters(graphFromTL(result.ViewsGraph), graphFromTL(result.ReactionsByEmotionGraph), done)
		},
		func(err error) {
			failed := models.ErrorGraph(ErrorType(err))
			m.requestMessageCounters(failed, failed, done)
		},
	))
}

func (m *MessageStatistics) requestStoryStats(done func(models.MessageStatistics)) {
	input := &tg.InputPeerChannel{ChannelID: m.channel.ID, AccessHash: m.channel.AccessHash}
	m.makeRequest(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.StatsStoryStats, error) {
			return api.StatsGetStoryStats(ctx, &tg.StatsGetStoryStatsRequest{
				Peer: input,
				ID:   m.target.StoryID.Story,
			})
		},
		func(result *tg.StatsStoryStats) {
			m.requestStoryCounters(graphFromTL(result.ViewsGraph), graphFromTL(result.ReactionsByEmotionGraph), done)
		},
		func(err error) {
			failed := models.ErrorGraph(ErrorType(err))
			m.requestStoryCounters(failed, failed, done)
		},
	))
}

// requestMessageCounters reads the post itself for its view, forward and
// reaction counters.
func (m *MessageStatistics) requestMessageCounters(views, reactions models.StatisticalGraph, done func(models.MessageStatistics)) {
	input := &tg.InputChannel{ChannelID: m.channel.ID, AccessHash: m.channel.AccessHash}
	m.request(invoke(
		func(ctx context.Context, api *tg.Client) (tg.MessagesMessagesClass, error) {
			return api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
				Channel: input,
				ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: m.target.MessageID.Msg}},
			})
		},
		func(result tg.MessagesMessagesClass) {
			var info models.MessageInteractionInfo
			if messages := messagesList(result); len(messages) > 0 {
				info = interactionFromMessage(messages[0])
			}
			m.requestFirstForwards(views, reactions, info, done)
		},
		func(error) {
			m.requestFirstForwards(views, reactions, models.MessageInteractionInfo{}, done)
		},
	))
}

func (m *MessageStatistics) requestStoryCounters(views, reactions models.StatisticalGraph, done func(models.MessageStatistics)) {
	input := &tg.InputPeerChannel{ChannelID: m.channel.ID, AccessHash: m.channel.AccessHash}
	m.request(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.StoriesStories, error) {
			return api.StoriesGetStoriesByID(ctx, &tg.StoriesGetStoriesByIDRequest{
				Peer: input,
				ID:   []int{m.target.StoryID.Story},
			})
		},
		func(result *tg.StoriesStories) {
			var info models.MessageInteractionInfo
			if len(result.Stories) > 0 {
				info = interactionFromStory(result.Stories[0])
			}
			m.requestFirstForwards(views, reactions, info, done)
		},
		func(error) {
			m.requestFirstForwards(views, reactions, models.MessageInteractionInfo{}, done)
		},
	))
}

func (m *MessageStatistics) requestFirstForwards(views, reactions models.StatisticalGraph, info models.MessageInteractionInfo, done func(models.MessageStatistics)) {
	deliver := func(slice models.PublicForwardsSlice) {
		done(models.MessageStatistics{
			MessageInteractionGraph: views,
			ReactionsByEmotionGraph: reactions,
			PublicForwards:          slice.Total,
			PrivateForwards:         info.ForwardsCount - slice.Total,
			Views:                   info.ViewsCount,
			Reactions:               info.ReactionsCount,
		})
	}
	// The pager ignores requests while paging; report what it knows so far.
	if m.forwards.Loading() {
		deliver(models.PublicForwardsSlice{Total: m.forwards.Total()})
		return
	}
	m.forwards.Request(models.ForwardsToken{}, func(slice models.PublicForwardsSlice, err error) {
		if err != nil {
			m.log.Debug().
				Int64("channel_id", m.channel.ID).
				Str("error", ErrorType(err)).
				Msg("stats: public forwards unavailable")
		}
		m.firstSlice = slice
		deliver(slice)
	})
}
