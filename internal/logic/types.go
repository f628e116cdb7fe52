// Package logic contains the input state model and the LED controller state
// machine. It has no hardware, network or OS dependencies: output goes
// through the Output interface and time through the Timer interface.
package logic

import "time"

// InputState is the debounced, settled level of the button input.
type InputState struct {
	Active bool
}

func (s InputState) String() string {
	if s.Active {
		return "ACTIVE"
	}
	return "INACTIVE"
}

// Mode is the controller's current sequence.
type Mode string

const (
	ModeIdle     Mode = "IDLE"
	ModeBlinking Mode = "BLINKING"
	ModeHolding  Mode = "HOLDING"
)

// ControllerState is the controller's state as seen after a transition.
type ControllerState struct {
	Mode Mode
	// Toggles counts output toggles in the current blink burst (Blinking only).
	Toggles int
	// Generation increments on every input; firings from older generations are dropped.
	Generation uint64
}

// Sequence timings. A burst of three blinks is six level changes: the
// initial ON followed by five toggles, ending OFF.
const (
	BlinkPeriod  = 100 * time.Millisecond
	BlinkCount   = 3
	BlinkToggles = 2*BlinkCount - 1
	HoldDuration = 500 * time.Millisecond
)
