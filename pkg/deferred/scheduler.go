// Package deferred runs short, fire-and-forget delayed callbacks that must not
// outlive the component that scheduled them.
package deferred

import (
	"sync"
	"time"
)

// Scheduler owns a set of pending timers. Close cancels all of them, and
// nothing scheduled on a closed scheduler ever runs.
type Scheduler struct {
	mu      sync.Mutex
	closed  bool
	nextID  uint64
	pending map[uint64]*time.Timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		pending: map[uint64]*time.Timer{},
	}
}

// CancelFunc stops a single scheduled callback. It is safe to call more than
// once and after the callback ran.
type CancelFunc func()

// After runs fn once d has elapsed, unless the scheduler is closed first.
// fn runs on its own goroutine.
func (s *Scheduler) After(d time.Duration, fn func()) CancelFunc {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	s.nextID++
	id := s.nextID
	s.pending[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, ok := s.pending[id]
		delete(s.pending, id)
		run := ok && !s.closed
		s.mu.Unlock()
		if run {
			fn()
		}
	})
	return func() { s.cancel(id) }
}

// Pending returns the number of callbacks that have not fired yet.
func (s *Scheduler) Pending() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending callback. Later calls to After are no-ops.
func (s *Scheduler) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[id]; ok {
		t.Stop()
		delete(s.pending, id)
	}
}
