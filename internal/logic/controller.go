package logic

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/button-led/internal/sched"
)

// Output drives the LED line.
type Output interface {
	SetOutput(level bool) error
	ToggleOutput() error
}

// Timer queues delayed actions on the worker that calls OnInput.
type Timer interface {
	Schedule(delay time.Duration, fn func()) *sched.Work
	Cancel(w *sched.Work)
}

// Controller drives the LED in response to published input states:
// a burst of three blinks on ACTIVE, a timed hold on INACTIVE.
// A new input always supersedes the sequence in progress.
//
// OnInput and every firing run on the scheduler's worker, so the state
// needs no lock. State must only be read from that context.
type Controller struct {
	out   Output
	timer Timer

	// OnChange, if set, is called on the worker after every transition.
	OnChange func(ControllerState)

	state   ControllerState
	toggle  *sched.Work
	release *sched.Work
	stale   atomic.Uint64
}

// NewController creates an idle controller.
func NewController(out Output, timer Timer) *Controller {
	return &Controller{
		out:   out,
		timer: timer,
		state: ControllerState{Mode: ModeIdle},
	}
}

// OnInput starts the sequence for in, invalidating whatever was scheduled.
func (c *Controller) OnInput(in InputState) {
	c.state.Generation++
	gen := c.state.Generation

	c.timer.Cancel(c.toggle)
	c.timer.Cancel(c.release)
	c.toggle, c.release = nil, nil
	c.state.Toggles = 0

	if in.Active {
		c.state.Mode = ModeBlinking
		c.report("turn on", c.out.SetOutput(true))
		c.toggle = c.timer.Schedule(BlinkPeriod, func() { c.onToggle(gen) })
	} else {
		c.state.Mode = ModeHolding
		c.report("turn on", c.out.SetOutput(true))
		c.release = c.timer.Schedule(HoldDuration, func() { c.onRelease(gen) })
	}
	c.changed()
}

func (c *Controller) onToggle(gen uint64) {
	if gen != c.state.Generation {
		c.stale.Add(1)
		return
	}

	// A failed write still counts so the burst always terminates.
	c.report("toggle", c.out.ToggleOutput())
	c.state.Toggles++

	if c.state.Toggles == BlinkToggles {
		c.state.Mode = ModeIdle
		c.state.Toggles = 0
		c.toggle = nil
	} else {
		c.toggle = c.timer.Schedule(BlinkPeriod, func() { c.onToggle(gen) })
	}
	c.changed()
}

func (c *Controller) onRelease(gen uint64) {
	if gen != c.state.Generation {
		c.stale.Add(1)
		return
	}

	c.report("turn off", c.out.SetOutput(false))
	c.state.Mode = ModeIdle
	c.release = nil
	c.changed()
}

func (c *Controller) report(op string, err error) {
	if err != nil {
		log.Printf("controller: %s led: %v", op, err)
	}
}

func (c *Controller) changed() {
	if c.OnChange != nil {
		c.OnChange(c.state)
	}
}

// State returns the current state.
func (c *Controller) State() ControllerState {
	return c.state
}

// StaleFirings counts firings dropped because a newer input superseded them.
// Safe to call from any goroutine.
func (c *Controller) StaleFirings() uint64 {
	return c.stale.Load()
}
