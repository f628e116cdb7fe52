// Package gpio provides the button and LED lines behind a hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// Error taxonomy for line access. Callers match with errors.Is.
var (
	// ErrDeviceNotReady means the chip or line could not be opened or has not
	// been configured yet. Fatal at bring-up.
	ErrDeviceNotReady = errors.New("gpio: device not ready")

	// ErrConfiguration means interrupt or callback registration failed.
	// Fatal at bring-up.
	ErrConfiguration = errors.New("gpio: configuration failed")

	// ErrIO means a single read or write failed. Logged and abandoned at runtime.
	ErrIO = errors.New("gpio: i/o failure")
)

// Edge selects which input transitions raise an edge callback.
type Edge int

const (
	EdgeRising Edge = iota + 1
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return "unknown"
}

// Device is the capability set the core consumes: one input line with edge
// notification and one output line. All levels are logical (active = true).
type Device interface {
	// ConfigureInput validates the input line and configures it as an input.
	ConfigureInput() error

	// ConfigureInputInterrupt arms edge detection on the input line.
	ConfigureInputInterrupt(edge Edge) error

	// RegisterEdgeCallback installs handler to run on every detected edge.
	// The handler runs on a driver goroutine and must not block.
	RegisterEdgeCallback(handler func()) error

	// ReadInput returns the logical level of the input line.
	ReadInput() (bool, error)

	// ConfigureOutput validates the output line and drives it inactive.
	ConfigureOutput() error

	// SetOutput drives the output line to the given logical level.
	SetOutput(level bool) error

	// ToggleOutput inverts the output line.
	ToggleOutput() error

	// Close releases GPIO resources.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering on a Raspberry Pi).
const (
	DefaultChip       = "gpiochip0"
	DefaultPinButton  = 17
	DefaultPinLED     = 27
	defaultConsumerID = "button-led"
)
