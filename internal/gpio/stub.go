//go:build !linux

package gpio

import "fmt"

// Config selects the chip and line offsets used by RealDevice.
type Config struct {
	Chip           string
	InputOffset    int
	InputActiveLow bool
	OutputOffset   int
}

// RealDevice is not available on non-Linux platforms.
type RealDevice struct{}

// NewRealDevice returns a device whose every call fails with ErrDeviceNotReady.
func NewRealDevice(cfg Config) *RealDevice {
	return &RealDevice{}
}

func errUnsupported() error {
	return fmt.Errorf("%w: not supported on this platform (requires Linux)", ErrDeviceNotReady)
}

func (d *RealDevice) ConfigureInput() error                  { return errUnsupported() }
func (d *RealDevice) ConfigureInputInterrupt(edge Edge) error { return errUnsupported() }
func (d *RealDevice) RegisterEdgeCallback(func()) error       { return errUnsupported() }
func (d *RealDevice) ReadInput() (bool, error)                { return false, errUnsupported() }
func (d *RealDevice) ConfigureOutput() error                  { return errUnsupported() }
func (d *RealDevice) SetOutput(level bool) error              { return errUnsupported() }
func (d *RealDevice) ToggleOutput() error                     { return errUnsupported() }

// Close is a no-op on non-Linux platforms.
func (d *RealDevice) Close() error {
	return nil
}
