package stats

import (
	"testing"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/models"
)

func postWithCounters(id, views, forwards int, reactions ...int) *tg.Message {
	msg := channelMessage(&tg.PeerChannel{ChannelID: testChannel.ID}, id, 1000)
	msg.SetViews(views)
	msg.SetForwards(forwards)
	if len(reactions) > 0 {
		var results []tg.ReactionCount
		for _, n := range reactions {
			results = append(results, tg.ReactionCount{Reaction: &tg.ReactionEmoji{Emoticon: "👍"}, Count: n})
		}
		msg.SetReactions(tg.MessageReactions{Results: results})
	}
	return msg
}

func (f *statisticsFixture) run(t *testing.T, m *MessageStatistics) models.MessageStatistics {
	t.Helper()
	var (
		result models.MessageStatistics
		calls  int
	)
	require.NoError(t, m.Request(func(r models.MessageStatistics) {
		calls++
		result = r
	}))
	f.loop.RunPending()
	require.Equal(t, 1, calls, "done must fire exactly once")
	return result
}

func TestMessageStatistics_FullSequence(t *testing.T) {
	f := newStatisticsFixture(t)
	f.directory = newFakeDirectory(forwarderA)
	f.transport.shard = 3

	f.mock.ExpectFunc(func(b bin.Encoder) {
		req, ok := b.(*tg.StatsGetMessageStatsRequest)
		require.True(t, ok, "unexpected request %T", b)
		assert.Equal(t, 33, req.MsgID)
	}).ThenResult(&tg.StatsMessageStats{ViewsGraph: chartGraph(), ReactionsByEmotionGraph: asyncGraph("emotions")})
	f.mock.ExpectFunc(func(b bin.Encoder) {
		req, ok := b.(*tg.ChannelsGetMessagesRequest)
		require.True(t, ok, "unexpected request %T", b)
		require.Len(t, req.ID, 1)
		assert.Equal(t, &tg.InputMessageID{ID: 33}, req.ID[0])
	}).ThenResult(&tg.MessagesChannelMessages{
		Count:    1,
		Messages: []tg.MessageClass{postWithCounters(33, 900, 12, 4, 6)},
	})
	f.mock.Expect().ThenResult(&tg.MessagesChannelMessages{
		Count: 5,
		Messages: []tg.MessageClass{
			channelMessage(&tg.PeerChannel{ChannelID: forwarderA.ID}, 1, 1000),
		},
	})

	m := NewMessageStatistics(testChannel, 33, f.transport, f.directory, f.loop, testOptions(f.schedule))
	result := f.run(t, m)

	assert.Equal(t, models.GraphChart, result.MessageInteractionGraph.Kind())
	assert.Equal(t, "emotions", result.ReactionsByEmotionGraph.ZoomToken)
	assert.Equal(t, 900, result.Views)
	assert.Equal(t, 10, result.Reactions)
	assert.Equal(t, 5, result.PublicForwards)
	assert.Equal(t, 7, result.PrivateForwards)
	assert.Equal(t, 5, m.FirstSlice().Total)

	// Only the stats call is routed to the statistics shard.
	require.Len(t, f.transport.dispatched, 3)
	assert.Equal(t, models.ShardID(3), f.transport.dispatched[0].shard)
	assert.Equal(t, models.ShardID(3), f.transport.dispatched[2].shard)
	assert.Equal(t, models.ShardID(0), f.transport.dispatched[1].shard)
}

func TestMessageStatistics_FailuresDegrade(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.Expect().ThenRPCErr(tgerr.New(400, "CHAT_ADMIN_REQUIRED"))
	f.mock.Expect().ThenRPCErr(tgerr.New(400, "CHANNEL_PRIVATE"))
	f.mock.Expect().ThenRPCErr(tgerr.New(400, "CHANNEL_PRIVATE"))

	m := NewMessageStatistics(testChannel, 33, f.transport, f.directory, f.loop, testOptions(f.schedule))
	result := f.run(t, m)

	assert.Equal(t, models.ErrorGraph("CHAT_ADMIN_REQUIRED"), result.MessageInteractionGraph)
	assert.Equal(t, models.ErrorGraph("CHAT_ADMIN_REQUIRED"), result.ReactionsByEmotionGraph)
	assert.Equal(t, models.MessageStatistics{
		MessageInteractionGraph: models.ErrorGraph("CHAT_ADMIN_REQUIRED"),
		ReactionsByEmotionGraph: models.ErrorGraph("CHAT_ADMIN_REQUIRED"),
	}, result)
}

func TestMessageStatistics_PrivateForwardsNotClamped(t *testing.T) {
	f := newStatisticsFixture(t)
	f.directory = newFakeDirectory(forwarderA)
	f.mock.Expect().ThenResult(&tg.StatsMessageStats{ViewsGraph: asyncGraph("v"), ReactionsByEmotionGraph: asyncGraph("r")})
	f.mock.Expect().ThenResult(&tg.MessagesMessages{Messages: []tg.MessageClass{postWithCounters(33, 10, 2)}})
	f.mock.Expect().ThenResult(&tg.MessagesChannelMessages{Count: 5})

	m := NewMessageStatistics(testChannel, 33, f.transport, f.directory, f.loop, testOptions(f.schedule))
	result := f.run(t, m)

	assert.Equal(t, -3, result.PrivateForwards)
}

func TestMessageStatistics_Story(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.ExpectFunc(func(b bin.Encoder) {
		req, ok := b.(*tg.StatsGetStoryStatsRequest)
		require.True(t, ok, "unexpected request %T", b)
		assert.Equal(t, 4, req.ID)
	}).ThenResult(&tg.StatsStoryStats{ViewsGraph: asyncGraph("views"), ReactionsByEmotionGraph: asyncGraph("reactions")})

	story := &tg.StoryItem{ID: 4, Date: 1000, ExpireDate: 2000, Media: &tg.MessageMediaEmpty{}}
	views := tg.StoryViews{ViewsCount: 300}
	views.SetForwardsCount(9)
	views.SetReactionsCount(21)
	story.SetViews(views)
	f.mock.ExpectFunc(func(b bin.Encoder) {
		req, ok := b.(*tg.StoriesGetStoriesByIDRequest)
		require.True(t, ok, "unexpected request %T", b)
		assert.Equal(t, []int{4}, req.ID)
	}).ThenResult(&tg.StoriesStories{Count: 1, Stories: []tg.StoryItemClass{story}})

	forwards := &tg.StatsPublicForwards{Count: 2}
	f.mock.ExpectFunc(func(b bin.Encoder) {
		_, ok := b.(*tg.StatsGetStoryPublicForwardsRequest)
		require.True(t, ok, "unexpected request %T", b)
	}).ThenResult(forwards)

	m := NewStoryStatistics(testChannel, 4, f.transport, f.directory, f.loop, testOptions(f.schedule))
	result := f.run(t, m)

	assert.Equal(t, 300, result.Views)
	assert.Equal(t, 21, result.Reactions)
	assert.Equal(t, 2, result.PublicForwards)
	assert.Equal(t, 7, result.PrivateForwards)
	assert.True(t, m.FirstSlice().AllLoaded)
}

func TestMessageStatistics_StoryCountersFallBack(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.Expect().ThenResult(&tg.StatsStoryStats{ViewsGraph: asyncGraph("views"), ReactionsByEmotionGraph: asyncGraph("reactions")})
	f.mock.Expect().ThenRPCErr(tgerr.New(400, "STORY_ID_INVALID"))
	f.mock.Expect().ThenResult(&tg.StatsPublicForwards{Count: 1})

	m := NewStoryStatistics(testChannel, 4, f.transport, f.directory, f.loop, testOptions(f.schedule))
	result := f.run(t, m)

	assert.Equal(t, 0, result.Views)
	assert.Equal(t, 1, result.PublicForwards)
	assert.Equal(t, -1, result.PrivateForwards)
}

func TestMessageStatistics_SupergroupDeclines(t *testing.T) {
	f := newStatisticsFixture(t)
	m := NewMessageStatistics(testSupergroup, 33, f.transport, f.directory, f.loop, testOptions(f.schedule))

	called := false
	err := m.Request(func(models.MessageStatistics) { called = true })
	f.loop.RunPending()

	assert.ErrorIs(t, err, ErrMegagroup)
	assert.False(t, called)
	assert.Equal(t, 0, f.transport.dispatchCount())
}

func TestMessageStatistics_BusyWhileRunning(t *testing.T) {
	f := newStatisticsFixture(t)
	f.transport.hold = true
	f.mock.Expect().ThenResult(&tg.StatsMessageStats{ViewsGraph: asyncGraph("v"), ReactionsByEmotionGraph: asyncGraph("r")})

	m := NewMessageStatistics(testChannel, 33, f.transport, f.directory, f.loop, testOptions(f.schedule))
	require.NoError(t, m.Request(func(models.MessageStatistics) {}))
	assert.ErrorIs(t, m.Request(func(models.MessageStatistics) {}), ErrBusy)
	assert.Equal(t, 1, f.transport.dispatchCount())

	require.True(t, f.transport.release())
	m.Close()
	f.loop.RunPending()
}
