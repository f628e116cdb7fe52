package sched

import (
	"sync"
	"time"
)

// Virtual is a Scheduler on a manually advanced clock. Advance runs each due
// action with the clock set to that action's due time, so delays measured
// from inside an action are exact. Used by tests in place of Run.
type Virtual struct {
	*Scheduler

	mu  sync.Mutex
	now time.Time
}

// NewVirtual creates a Virtual scheduler whose clock starts at start.
func NewVirtual(start time.Time) *Virtual {
	v := &Virtual{now: start}
	v.Scheduler = New(v.Now)
	return v
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) set(t time.Time) {
	v.mu.Lock()
	if t.After(v.now) {
		v.now = t
	}
	v.mu.Unlock()
}

// Advance moves the clock forward by d, running everything that comes due.
func (v *Virtual) Advance(d time.Duration) {
	target := v.Now().Add(d)
	for {
		due, ok := v.NextDue()
		if !ok || due.After(target) {
			break
		}
		v.set(due)
		v.RunDue(v.Now())
	}
	v.set(target)
}

// AdvanceTo moves the clock to t (no-op if t is not in the future).
func (v *Virtual) AdvanceTo(t time.Time) {
	if d := t.Sub(v.Now()); d > 0 {
		v.Advance(d)
	}
}
