// Package sched runs delayed actions on a single worker goroutine.
//
// Producers (edge handlers, listeners, the actions themselves) queue work
// with Schedule, Reschedule and Cancel from any goroutine; only the worker
// executes it. Every queue entry carries the generation its handle had when
// it was queued. Cancel and Reschedule bump the handle's generation, so an
// entry that comes due after being superseded is dropped instead of run.
package sched

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyRunning is returned when Run is called while a worker is active.
var ErrAlreadyRunning = errors.New("sched: worker already running")

// Work is a handle to a delayed action. A handle can be rescheduled any
// number of times; at most one queued entry for it is live at a time.
type Work struct {
	fn func()

	// guarded by Scheduler.mu
	gen     uint64
	pending bool
	due     time.Time
}

type entry struct {
	due  time.Time
	seq  uint64
	gen  uint64
	work *Work
}

// queue orders entries by due time, then by submission sequence.
type queue []*entry

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(*entry)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Stats counts scheduler activity since creation.
type Stats struct {
	Scheduled uint64 // entries queued
	Fired     uint64 // actions executed
	Skipped   uint64 // stale entries dropped
	Pending   int    // live handles waiting to fire
}

// Scheduler queues delayed actions and runs them in due order.
type Scheduler struct {
	now  func() time.Time
	wake chan struct{}

	mu      sync.Mutex
	q       queue
	seq     uint64
	pending int
	stats   Stats

	running atomic.Bool
}

// New creates a Scheduler reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		now:  now,
		wake: make(chan struct{}, 1),
	}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// NewWork creates an idle handle for fn. Nothing is queued until Reschedule.
func (s *Scheduler) NewWork(fn func()) *Work {
	return &Work{fn: fn}
}

// Schedule queues fn to run after delay and returns its handle.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Work {
	w := s.NewWork(fn)
	s.Reschedule(w, delay)
	return w
}

// Reschedule (re)arms w to run after delay, superseding any pending firing.
// A handle that already fired or was cancelled is armed afresh.
func (s *Scheduler) Reschedule(w *Work, delay time.Duration) {
	due := s.now().Add(delay)

	s.mu.Lock()
	w.gen++
	if !w.pending {
		s.pending++
	}
	w.pending = true
	w.due = due
	s.seq++
	heap.Push(&s.q, &entry{due: due, seq: s.seq, gen: w.gen, work: w})
	s.stats.Scheduled++
	s.mu.Unlock()

	s.signal()
}

// Cancel stops w from firing. Cancelling a handle that is idle, already
// fired or already cancelled does nothing. An action that has already
// started is not interrupted.
func (s *Scheduler) Cancel(w *Work) {
	if w == nil {
		return
	}
	s.mu.Lock()
	if w.pending {
		w.gen++
		w.pending = false
		s.pending--
	}
	s.mu.Unlock()
}

// Pending reports whether w is queued and will fire.
func (s *Scheduler) Pending(w *Work) bool {
	if w == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return w.pending
}

// Stats returns a copy of the activity counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Pending = s.pending
	return st
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// headLocked drops stale entries and returns the earliest live one.
// Must be called with s.mu held.
func (s *Scheduler) headLocked() *entry {
	for len(s.q) > 0 {
		e := s.q[0]
		if e.gen == e.work.gen && e.work.pending {
			return e
		}
		heap.Pop(&s.q)
		s.stats.Skipped++
	}
	return nil
}

// NextDue returns the due time of the earliest live entry.
func (s *Scheduler) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.headLocked(); e != nil {
		return e.due, true
	}
	return time.Time{}, false
}

// RunDue executes, one at a time and in order, every action due at or before
// now, including actions queued by those actions that are also due.
// It must only be called from the worker context. Returns the number run.
func (s *Scheduler) RunDue(now time.Time) int {
	n := 0
	for {
		s.mu.Lock()
		e := s.headLocked()
		if e == nil || e.due.After(now) {
			s.mu.Unlock()
			return n
		}
		heap.Pop(&s.q)
		e.work.pending = false
		s.pending--
		s.stats.Fired++
		s.mu.Unlock()

		e.work.fn()
		n++
	}
}

// Run is the worker loop. It executes due actions until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	for {
		s.RunDue(s.now())

		var timeout <-chan time.Time
		var timer *time.Timer
		if due, ok := s.NextDue(); ok {
			d := due.Sub(s.now())
			if d <= 0 {
				continue
			}
			timer = time.NewTimer(d)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-s.wake:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}
