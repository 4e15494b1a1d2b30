package stats

// zoomTask starts one graph expansion and calls finish once it has completed,
// successfully or not.
type zoomTask func(finish func())

// zoomQueue runs zoom tasks one at a time in submission order.
// A failed task still advances the queue.
type zoomQueue struct {
	tasks   []zoomTask
	running bool
	gen     int
}

// Enqueue appends task and starts it right away if the queue was idle.
func (q *zoomQueue) Enqueue(task zoomTask) {
	wasEmpty := len(q.tasks) == 0
	q.tasks = append(q.tasks, task)
	if wasEmpty {
		q.startHead()
	}
}

// Len returns the number of queued tasks, the running one included.
func (q *zoomQueue) Len() int {
	return len(q.tasks)
}

// Running reports whether the head task has started and not finished yet.
func (q *zoomQueue) Running() bool {
	return q.running
}

// Reset drops every queued task without running it.
func (q *zoomQueue) Reset() {
	q.tasks = nil
	q.running = false
	q.gen++
}

func (q *zoomQueue) startHead() {
	q.running = true
	gen := q.gen
	finished := false
	q.tasks[0](func() {
		if finished || gen != q.gen {
			return
		}
		finished = true
		q.advance()
	})
}

func (q *zoomQueue) advance() {
	q.running = false
	if len(q.tasks) == 0 {
		return
	}
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	if len(q.tasks) > 0 {
		q.startHead()
	}
}
