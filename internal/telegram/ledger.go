package telegram

import (
	"sync"

	"github.com/blockedby/tgstats/internal/models"
)

// Ledger keeps track of dispatched requests: which ids are still on the wire
// and which of them are registered as statistics requests per shard.
type Ledger struct {
	mu      sync.Mutex
	next    models.RequestID
	pending map[models.RequestID]struct{}
	stats   map[models.ShardID]map[models.RequestID]struct{}
	idle    func(models.ShardID)
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		pending: make(map[models.RequestID]struct{}),
		stats:   make(map[models.ShardID]map[models.RequestID]struct{}),
	}
}

// AllocateRequestID returns a fresh, non-zero request id.
func (l *Ledger) AllocateRequestID() models.RequestID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	return l.next
}

// RegisterStatsRequest records id as a statistics request served by shard.
func (l *Ledger) RegisterStatsRequest(shard models.ShardID, id models.RequestID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids, ok := l.stats[shard]
	if !ok {
		ids = make(map[models.RequestID]struct{})
		l.stats[shard] = ids
	}
	ids[id] = struct{}{}
}

// OnIdle sets fn to be called, outside the lock, each time the last
// statistics request of a shard is unregistered.
func (l *Ledger) OnIdle(fn func(models.ShardID)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idle = fn
}

// UnregisterStatsRequest forgets a statistics request.
func (l *Ledger) UnregisterStatsRequest(shard models.ShardID, id models.RequestID) {
	l.mu.Lock()
	ids, ok := l.stats[shard]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(ids, id)
	idle := len(ids) == 0
	if idle {
		delete(l.stats, shard)
	}
	fn := l.idle
	l.mu.Unlock()

	if idle && fn != nil {
		fn(shard)
	}
}

// Pending reports whether id is still being sent or awaiting its answer.
func (l *Ledger) Pending(id models.RequestID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[id]
	return ok
}

// StatsRequests returns the number of statistics requests registered on shard.
func (l *Ledger) StatsRequests(shard models.ShardID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stats[shard])
}

func (l *Ledger) begin(id models.RequestID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[id] = struct{}{}
}

func (l *Ledger) finish(id models.RequestID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, id)
}
