// Package bus is the single-slot event channel carrying the latest input
// state to its listeners.
package bus

import (
	"errors"
	"sync"

	"github.com/sweeney/button-led/internal/logic"
)

// ErrSubscribeDuringPublish is returned by Subscribe when called from a listener.
var ErrSubscribeDuringPublish = errors.New("bus: subscribe during publish")

// Listener is invoked synchronously on every publish. It must return
// quickly and never block on I/O; slow work belongs on the scheduler or a
// goroutine of its own.
type Listener interface {
	OnInput(state logic.InputState)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(state logic.InputState)

func (f ListenerFunc) OnInput(state logic.InputState) { f(state) }

// Channel retains exactly one InputState and fans it out to listeners in
// registration order. There is no queue and no history.
type Channel struct {
	mu         sync.Mutex
	latest     logic.InputState
	listeners  []Listener
	publishing bool
	published  uint64
}

// New creates a channel holding the zero state (inactive).
func New() *Channel {
	return &Channel{}
}

// Subscribe registers l. Call during setup, not from inside a listener.
func (c *Channel) Subscribe(l Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishing {
		return ErrSubscribeDuringPublish
	}
	c.listeners = append(c.listeners, l)
	return nil
}

// Publish replaces the retained state and invokes every listener with it.
// It returns once all listeners have returned.
func (c *Channel) Publish(state logic.InputState) {
	c.mu.Lock()
	c.latest = state
	c.published++
	c.publishing = true
	listeners := c.listeners
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.publishing = false
		c.mu.Unlock()
	}()

	for _, l := range listeners {
		l.OnInput(state)
	}
}

// Latest returns the retained state.
func (c *Channel) Latest() logic.InputState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Published returns the number of publishes so far.
func (c *Channel) Published() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// Listeners returns the number of registered listeners.
func (c *Channel) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}
