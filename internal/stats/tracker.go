package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
)

// DefaultSweepInterval is how often finished requests are released.
const DefaultSweepInterval = 10 * time.Second

// Schedule calls fn every d until the returned stop function is called.
type Schedule func(d time.Duration, fn func()) (stop func())

// LoopSchedule returns a Schedule whose ticks run on loop.
func LoopSchedule(loop *Loop) Schedule {
	return func(d time.Duration, fn func()) func() {
		ticker := time.NewTicker(d)
		done := make(chan struct{})
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					loop.Post(fn)
				case <-done:
					return
				}
			}
		}()
		var once sync.Once
		return func() { once.Do(func() { close(done) }) }
	}
}

// Tracker owns the stats requests a fetcher has dispatched, grouped by shard.
// It releases them from the ledger once the transport no longer reports them
// pending, and releases everything left on teardown.
type Tracker struct {
	ledger   Ledger
	schedule Schedule
	interval time.Duration
	requests map[models.ShardID]map[models.RequestID]struct{}
	stop     func()
	log      *logger.Logger
}

// NewTracker creates a tracker sweeping every interval while non-empty.
func NewTracker(ledger Ledger, schedule Schedule, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Tracker{
		ledger:   ledger,
		schedule: schedule,
		interval: interval,
		requests: make(map[models.ShardID]map[models.RequestID]struct{}),
		log:      logger.Get(),
	}
}

// Register records id as outstanding on shard and starts the sweep if idle.
func (t *Tracker) Register(shard models.ShardID, id models.RequestID) {
	t.ledger.RegisterStatsRequest(shard, id)
	ids, ok := t.requests[shard]
	if !ok {
		ids = make(map[models.RequestID]struct{})
		t.requests[shard] = ids
	}
	ids[id] = struct{}{}

	if t.stop == nil {
		t.stop = t.schedule(t.interval, t.Sweep)
	}
}

// Sweep releases every request the transport no longer reports pending.
// The periodic sweep stops once nothing is tracked.
func (t *Tracker) Sweep() {
	released := 0
	for shard, ids := range t.requests {
		for id := range ids {
			if t.ledger.Pending(id) {
				continue
			}
			t.ledger.UnregisterStatsRequest(shard, id)
			delete(ids, id)
			released++
		}
		if len(ids) == 0 {
			delete(t.requests, shard)
		}
	}
	if released > 0 {
		t.log.Debug().Int("released", released).Int("shards", len(t.requests)).Msg("stats: swept finished requests")
	}
	if len(t.requests) == 0 {
		t.halt()
	}
}

// Teardown releases every tracked request regardless of its state.
func (t *Tracker) Teardown() {
	for shard, ids := range t.requests {
		for id := range ids {
			t.ledger.UnregisterStatsRequest(shard, id)
		}
	}
	t.requests = make(map[models.ShardID]map[models.RequestID]struct{})
	t.halt()
}

// Len returns the number of tracked requests.
func (t *Tracker) Len() int {
	n := 0
	for _, ids := range t.requests {
		n += len(ids)
	}
	return n
}

// Tracked returns the ids tracked on shard in ascending order.
func (t *Tracker) Tracked(shard models.ShardID) []models.RequestID {
	ids := make([]models.RequestID, 0, len(t.requests[shard]))
	for id := range t.requests[shard] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sweeping reports whether the periodic sweep is scheduled.
func (t *Tracker) Sweeping() bool {
	return t.stop != nil
}

func (t *Tracker) halt() {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}
