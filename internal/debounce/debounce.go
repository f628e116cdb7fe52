// Package debounce turns raw edge notifications into a single settled read
// of the input line.
package debounce

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/sched"
)

// DefaultWindow is the quiet period after the last edge before the line is read.
const DefaultWindow = 30 * time.Millisecond

// Reader reads the logical input level.
type Reader interface {
	ReadInput() (bool, error)
}

// Publisher receives each settled state.
type Publisher interface {
	Publish(state logic.InputState)
}

// Timer re-arms the settle action.
type Timer interface {
	NewWork(fn func()) *sched.Work
	Reschedule(w *sched.Work, delay time.Duration)
}

// Stats counts debouncer activity since creation.
type Stats struct {
	Edges        uint64
	Settles      uint64
	ReadFailures uint64
}

// Debouncer collapses a burst of edges into one settle check, window after
// the last edge.
type Debouncer struct {
	in     Reader
	pub    Publisher
	timer  Timer
	window time.Duration
	settle *sched.Work

	edges    atomic.Uint64
	settles  atomic.Uint64
	failures atomic.Uint64
}

// New creates a Debouncer. A window <= 0 uses DefaultWindow.
func New(in Reader, pub Publisher, timer Timer, window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	d := &Debouncer{
		in:     in,
		pub:    pub,
		timer:  timer,
		window: window,
	}
	d.settle = timer.NewWork(d.run)
	return d
}

// OnEdge is the edge callback. It only re-arms the settle action and is
// safe to call from the driver's event goroutine.
func (d *Debouncer) OnEdge() {
	d.edges.Add(1)
	d.timer.Reschedule(d.settle, d.window)
}

// run reads the line once. A failed read is logged and dropped; the next
// edge starts a fresh debounce.
func (d *Debouncer) run() {
	d.settles.Add(1)

	active, err := d.in.ReadInput()
	if err != nil {
		d.failures.Add(1)
		log.Printf("debounce: read input: %v", err)
		return
	}

	state := logic.InputState{Active: active}
	log.Printf("debounce: input %s", state)
	d.pub.Publish(state)
}

// Window returns the debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Stats returns a copy of the counters.
func (d *Debouncer) Stats() Stats {
	return Stats{
		Edges:        d.edges.Load(),
		Settles:      d.settles.Load(),
		ReadFailures: d.failures.Load(),
	}
}
