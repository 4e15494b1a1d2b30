package stats

import (
	"testing"
	"time"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/models"
)

func (f *statisticsFixture) boosts(channel models.Channel) *Boosts {
	return NewBoosts(channel, f.transport, f.directory, f.loop, testOptions(f.schedule))
}

func boostsStatus() *tg.PremiumBoostsStatus {
	return &tg.PremiumBoostsStatus{
		Level:              -1,
		CurrentLevelBoosts: 7,
		Boosts:             5,
		BoostURL:           "https://t.me/boost/durov",
	}
}

func giftBoost() tg.Boost {
	b := tg.Boost{
		Gift:    true,
		ID:      "b1",
		Date:    1_700_000_000,
		Expires: 1_700_000_000 + 3*30*86400 + 100,
	}
	b.SetUserID(77)
	b.SetUsedGiftSlug("ABC")
	b.SetGiveawayMsgID(15)
	b.SetMultiplier(4)
	return b
}

func TestBoosts_StatusWithoutPremiumAudience(t *testing.T) {
	f := newStatisticsFixture(t)
	status := boostsStatus()
	status.SetMyBoostSlots([]int{1, 2})
	status.SetNextLevelBoosts(15)
	status.SetGiftBoosts(3)
	status.SetPrepaidGiveaways([]tg.PrepaidGiveawayClass{
		&tg.PrepaidGiveaway{ID: 9, Months: 3, Quantity: 10, Date: 1_700_000_000},
		&tg.PrepaidStarsGiveaway{ID: 10, Stars: 5000, Quantity: 2, Boosts: 50, Date: 1_700_000_000},
	})

	f.mock.ExpectFunc(func(b bin.Encoder) {
		req, ok := b.(*tg.PremiumGetBoostsStatusRequest)
		require.True(t, ok, "unexpected request %T", b)
		peer := req.Peer.(*tg.InputPeerChannel)
		assert.Equal(t, testChannel.ID, peer.ChannelID)
	}).ThenResult(status)
	f.mock.ExpectFunc(func(b bin.Encoder) {
		req := b.(*tg.PremiumGetBoostsListRequest)
		assert.False(t, req.Gifts)
		assert.Equal(t, 10, req.Limit)
	}).ThenResult(&tg.PremiumBoostsList{Count: 0})
	f.mock.ExpectFunc(func(b bin.Encoder) {
		req := b.(*tg.PremiumGetBoostsListRequest)
		assert.True(t, req.Gifts)
		assert.Equal(t, 10, req.Limit)
	}).ThenResult(&tg.PremiumBoostsList{Count: 1, Boosts: []tg.Boost{giftBoost()}, Users: []tg.UserClass{&tg.User{ID: 77}}})

	b := f.boosts(testChannel)
	calls := 0
	var got error
	require.NoError(t, b.Request(func(err error) { calls++; got = err }))
	f.loop.RunPending()

	require.Equal(t, 1, calls)
	require.NoError(t, got)

	st := b.BoostStatus()
	assert.Equal(t, models.BoostsOverview{
		Mine:                   2,
		Level:                  0,
		BoostCount:             7,
		GiftBoostCount:         3,
		CurrentLevelBoostCount: 7,
		NextLevelBoostCount:    15,
	}, st.Overview)
	assert.Equal(t, "https://t.me/boost/durov", st.Link)
	require.Len(t, st.PrepaidGiveaway, 2)
	assert.Equal(t, 3, st.PrepaidGiveaway[0].Months)
	assert.Equal(t, int64(5000), st.PrepaidGiveaway[1].Stars)
	assert.True(t, st.FirstSliceBoosts.AllLoaded)
	assert.False(t, st.FirstSliceBoosts.Token.Gifts)
	assert.True(t, st.FirstSliceGifts.Token.Gifts)
	require.Len(t, st.FirstSliceGifts.List, 1)
	assert.Equal(t, 1, f.directory.users)
}

func TestBoosts_PremiumAudience(t *testing.T) {
	f := newStatisticsFixture(t)
	status := boostsStatus()
	status.SetPremiumAudience(tg.StatsPercentValue{Part: 25, Total: 200})
	f.mock.Expect().ThenResult(status)
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})

	b := f.boosts(testChannel)
	require.NoError(t, b.Request(func(err error) { require.NoError(t, err) }))
	f.loop.RunPending()

	assert.Equal(t, 25, b.BoostStatus().Overview.PremiumMemberCount)
	assert.InDelta(t, 12.5, b.BoostStatus().Overview.PremiumMemberPercentage, 1e-9)
}

func TestBoosts_BoostFields(t *testing.T) {
	f := newStatisticsFixture(t)
	next := &tg.PremiumBoostsList{Count: 8, Boosts: []tg.Boost{giftBoost()}}
	next.SetNextOffset("o2")
	f.mock.Expect().ThenResult(next)

	b := f.boosts(testChannel)
	var slice models.BoostsListSlice
	require.NoError(t, b.RequestBoosts(models.BoostsToken{}, func(s models.BoostsListSlice, err error) {
		require.NoError(t, err)
		slice = s
	}))
	f.loop.RunPending()

	require.Len(t, slice.List, 1)
	boost := slice.List[0]
	assert.True(t, boost.IsGift)
	assert.Equal(t, "b1", boost.ID)
	assert.Equal(t, int64(77), boost.UserID)
	assert.Equal(t, 3, boost.ExpiresAfterMonths)
	assert.Equal(t, time.Unix(1_700_000_000, 0), boost.Date)
	assert.Equal(t, models.FullMsgID{Peer: testChannel.Peer(), Msg: 15}, boost.GiveawayMessage)
	assert.Equal(t, models.GiftCodeLink{
		Text: "t.me/giftcode/ABC",
		Link: "https://t.me/giftcode/ABC",
		Slug: "ABC",
	}, boost.GiftCodeLink)
	assert.Equal(t, 4, boost.Multiplier)

	assert.Equal(t, 8, slice.MultipliedTotal)
	assert.False(t, slice.AllLoaded)
	assert.Equal(t, models.BoostsToken{Next: "o2"}, slice.Token)
}

func TestBoosts_LaterPagesUseRegularLimit(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.ExpectFunc(func(b bin.Encoder) {
		req := b.(*tg.PremiumGetBoostsListRequest)
		assert.Equal(t, "o2", req.Offset)
		assert.Equal(t, 40, req.Limit)
	}).ThenResult(&tg.PremiumBoostsList{})

	b := f.boosts(testChannel)
	require.NoError(t, b.RequestBoosts(models.BoostsToken{Next: "o2"}, func(models.BoostsListSlice, error) {}))
	f.loop.RunPending()
}

func TestBoosts_ConcurrentPageIsRejected(t *testing.T) {
	f := newStatisticsFixture(t)
	f.transport.hold = true
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})

	b := f.boosts(testChannel)
	calls := 0
	require.NoError(t, b.RequestBoosts(models.BoostsToken{}, func(models.BoostsListSlice, error) { calls++ }))
	assert.ErrorIs(t, b.RequestBoosts(models.BoostsToken{}, func(models.BoostsListSlice, error) { calls++ }), ErrBusy)

	assert.Equal(t, 1, f.transport.dispatchCount())
	assert.True(t, b.Loading())
	assert.ErrorIs(t, b.Request(func(error) {}), ErrBusy)

	require.True(t, f.transport.release())
	f.loop.RunPending()
	assert.Equal(t, 1, calls)
	assert.False(t, b.Busy())
}

func TestBoosts_PageDuringStatusRunIsRejected(t *testing.T) {
	f := newStatisticsFixture(t)
	f.transport.hold = true
	f.mock.Expect().ThenResult(boostsStatus())
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})

	b := f.boosts(testChannel)
	calls := 0
	require.NoError(t, b.Request(func(err error) {
		calls++
		require.NoError(t, err)
	}))

	// the status call is parked, so no page is loading yet
	assert.False(t, b.Loading())
	assert.ErrorIs(t, b.RequestBoosts(models.BoostsToken{}, func(models.BoostsListSlice, error) {
		t.Fatal("rejected page must not complete")
	}), ErrBusy)
	assert.Equal(t, 1, f.transport.dispatchCount())

	for f.transport.release() {
		f.loop.RunPending()
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, f.transport.dispatchCount())
	assert.False(t, b.Busy())
}

func TestBoosts_RepeatedRequestReplacesStatus(t *testing.T) {
	f := newStatisticsFixture(t)
	first := boostsStatus()
	first.SetPrepaidGiveaways([]tg.PrepaidGiveawayClass{
		&tg.PrepaidGiveaway{ID: 9, Months: 3, Quantity: 10, Date: 1_700_000_000},
	})
	f.mock.Expect().ThenResult(first)
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})

	b := f.boosts(testChannel)
	require.NoError(t, b.Request(func(err error) { require.NoError(t, err) }))
	f.loop.RunPending()
	require.Len(t, b.BoostStatus().PrepaidGiveaway, 1)

	second := boostsStatus()
	second.BoostURL = "https://t.me/boost/durov2"
	f.mock.Expect().ThenResult(second)
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})

	require.NoError(t, b.Request(func(err error) { require.NoError(t, err) }))
	f.loop.RunPending()

	st := b.BoostStatus()
	assert.Empty(t, st.PrepaidGiveaway)
	assert.Equal(t, "https://t.me/boost/durov2", st.Link)
}

func TestBoosts_FailedRunKeepsPreviousStatus(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.Expect().ThenResult(boostsStatus())
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})
	f.mock.Expect().ThenResult(&tg.PremiumBoostsList{})

	b := f.boosts(testChannel)
	require.NoError(t, b.Request(func(err error) { require.NoError(t, err) }))
	f.loop.RunPending()

	changed := boostsStatus()
	changed.BoostURL = "https://t.me/boost/other"
	f.mock.Expect().ThenResult(changed)
	f.mock.Expect().ThenRPCErr(tgerr.New(420, "FLOOD_WAIT_3"))

	var got error
	require.NoError(t, b.Request(func(err error) { got = err }))
	f.loop.RunPending()

	require.Error(t, got)
	assert.Equal(t, "https://t.me/boost/durov", b.BoostStatus().Link)
}

func TestBoosts_StatusFailure(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.Expect().ThenRPCErr(tgerr.New(400, "CHAT_ADMIN_REQUIRED"))

	b := f.boosts(testChannel)
	var got error
	require.NoError(t, b.Request(func(err error) { got = err }))
	f.loop.RunPending()

	assert.Equal(t, "CHAT_ADMIN_REQUIRED", ErrorType(got))
	assert.False(t, b.Busy())
}

func TestBoosts_ListFailureEndsRequest(t *testing.T) {
	f := newStatisticsFixture(t)
	f.mock.Expect().ThenResult(boostsStatus())
	f.mock.Expect().ThenRPCErr(tgerr.New(420, "FLOOD_WAIT_3"))

	b := f.boosts(testChannel)
	calls := 0
	var got error
	require.NoError(t, b.Request(func(err error) { calls++; got = err }))
	f.loop.RunPending()

	assert.Equal(t, 1, calls)
	assert.Error(t, got)
	assert.Equal(t, 2, f.transport.dispatchCount())
}

func TestBoosts_Declines(t *testing.T) {
	f := newStatisticsFixture(t)

	assert.ErrorIs(t, f.boosts(models.Channel{}).Request(func(error) {}), ErrNoChannel)
	assert.ErrorIs(t, f.boosts(testSupergroup).Request(func(error) {}), ErrMegagroup)
	assert.Equal(t, 0, f.transport.dispatchCount())
}
