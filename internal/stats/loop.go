package stats

import (
	"context"
	"sync"
)

// Loop runs posted callbacks one at a time, in posting order, on the goroutine
// that called Run. Fetchers keep their state confined to this goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed chan struct{}
	once   sync.Once
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Post schedules fn. It never blocks, so it is safe to call from inside a callback.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.closed) })
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending executes everything queued so far, including callbacks posted
// while draining, and returns the number of callbacks run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}

// Do posts fn and waits until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
