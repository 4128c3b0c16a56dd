// Package loop lets any goroutine hand work to the coordinating goroutine.
package loop

import "sync"

// Executor queues functions posted from anywhere and runs them when the owner
// calls Drain.
type Executor struct {
	mu      sync.Mutex
	pending []func()
}

// New creates an empty executor.
func New() *Executor {
	return &Executor{pending: make([]func(), 0)}
}

// Post schedules fn for the next Drain. Safe for concurrent use.
func (e *Executor) Post(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.pending = append(e.pending, fn)
	e.mu.Unlock()
}

// Drain runs everything posted before the call, in posting order, and returns
// how many functions ran. Functions posted while draining wait for the next
// Drain.
func (e *Executor) Drain() int {
	e.mu.Lock()
	batch := e.pending
	e.pending = make([]func(), 0, cap(batch))
	e.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of functions waiting.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
