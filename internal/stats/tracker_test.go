package stats

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/models"
)

func TestTracker_RegisterStartsSweepOnce(t *testing.T) {
	ledger := newFakeTransport(nil)
	schedule := &fakeSchedule{}
	tracker := NewTracker(ledger, schedule.Schedule, time.Second)

	tracker.Register(2, 10)
	tracker.Register(2, 11)
	tracker.Register(4, 12)

	assert.Equal(t, 1, schedule.started)
	assert.True(t, tracker.Sweeping())
	assert.Equal(t, 3, tracker.Len())
	assert.Equal(t, []models.RequestID{10, 11}, tracker.Tracked(2))
	assert.Equal(t, []registration{{2, 10}, {2, 11}, {4, 12}}, ledger.registered)
}

func TestTracker_SweepReleasesFinishedOnly(t *testing.T) {
	ledger := newFakeTransport(nil)
	schedule := &fakeSchedule{}
	tracker := NewTracker(ledger, schedule.Schedule, time.Second)

	tracker.Register(2, 1)
	tracker.Register(2, 2)
	tracker.Register(4, 3)
	ledger.pending[2] = true

	schedule.tick()

	assert.Equal(t, []models.RequestID{2}, tracker.Tracked(2))
	assert.Empty(t, tracker.Tracked(4))
	assert.ElementsMatch(t, []registration{{2, 1}, {4, 3}}, ledger.unregistered)
	assert.True(t, tracker.Sweeping(), "sweep keeps running while requests remain")
	assert.Equal(t, 0, schedule.stopped)

	delete(ledger.pending, 2)
	schedule.tick()

	assert.Equal(t, 0, tracker.Len())
	assert.False(t, tracker.Sweeping())
	assert.Equal(t, 1, schedule.stopped)
}

func TestTracker_RestartsAfterIdle(t *testing.T) {
	ledger := newFakeTransport(nil)
	schedule := &fakeSchedule{}
	tracker := NewTracker(ledger, schedule.Schedule, time.Second)

	tracker.Register(2, 1)
	schedule.tick()
	require.False(t, tracker.Sweeping())

	tracker.Register(2, 2)
	assert.True(t, tracker.Sweeping())
	assert.Equal(t, 2, schedule.started)
}

func TestTracker_TeardownReleasesEverything(t *testing.T) {
	ledger := newFakeTransport(nil)
	schedule := &fakeSchedule{}
	tracker := NewTracker(ledger, schedule.Schedule, time.Second)

	tracker.Register(2, 1)
	tracker.Register(3, 2)
	ledger.pending[1] = true
	ledger.pending[2] = true

	tracker.Teardown()

	assert.ElementsMatch(t, []registration{{2, 1}, {3, 2}}, ledger.unregistered)
	assert.Equal(t, 0, tracker.Len())
	assert.False(t, tracker.Sweeping())
}

func TestLoopSchedule_TicksOnLoop(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var ticks atomic.Int32
	stop := LoopSchedule(loop)(5*time.Millisecond, func() { ticks.Add(1) })

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	stop()
	stop()
}
