//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// Config selects the chip and line offsets used by RealDevice.
type Config struct {
	Chip           string
	InputOffset    int
	InputActiveLow bool // button wired to ground with pull-up
	OutputOffset   int
}

// RealDevice drives the button and LED lines via the Linux GPIO character device.
type RealDevice struct {
	cfg Config

	mu   sync.Mutex
	chip *gpiocdev.Chip
	in   *gpiocdev.Line
	out  *gpiocdev.Line
	edge Edge
}

// NewRealDevice creates a device for the given lines. No hardware is touched
// until ConfigureInput or ConfigureOutput is called.
func NewRealDevice(cfg Config) *RealDevice {
	if cfg.Chip == "" {
		cfg.Chip = DefaultChip
	}
	return &RealDevice{cfg: cfg}
}

func (d *RealDevice) openChip() error {
	if d.chip != nil {
		return nil
	}
	chip, err := gpiocdev.NewChip(d.cfg.Chip, gpiocdev.WithConsumer(defaultConsumerID))
	if err != nil {
		return fmt.Errorf("%w: open chip %s: %v", ErrDeviceNotReady, d.cfg.Chip, err)
	}
	d.chip = chip
	return nil
}

func (d *RealDevice) checkOffset(offset int) error {
	if offset < 0 || offset >= d.chip.Lines() {
		return fmt.Errorf("%w: line %d not on %s (%d lines)", ErrDeviceNotReady, offset, d.cfg.Chip, d.chip.Lines())
	}
	return nil
}

func (d *RealDevice) inputOptions() []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if d.cfg.InputActiveLow {
		opts = append(opts, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	} else {
		opts = append(opts, gpiocdev.WithPullDown)
	}
	return opts
}

// ConfigureInput requests the input line with a pull matching its polarity.
func (d *RealDevice) ConfigureInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.openChip(); err != nil {
		return err
	}
	if err := d.checkOffset(d.cfg.InputOffset); err != nil {
		return err
	}
	if d.in != nil {
		return nil
	}

	line, err := d.chip.RequestLine(d.cfg.InputOffset, d.inputOptions()...)
	if err != nil {
		return fmt.Errorf("%w: request input line %d: %v", ErrDeviceNotReady, d.cfg.InputOffset, err)
	}
	d.in = line
	return nil
}

// ConfigureInputInterrupt enables edge detection on the requested input line.
func (d *RealDevice) ConfigureInputInterrupt(edge Edge) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.in == nil {
		return fmt.Errorf("%w: input line not configured", ErrDeviceNotReady)
	}
	opt, err := edgeOption(edge)
	if err != nil {
		return err
	}
	if err := d.in.Reconfigure(opt); err != nil {
		return fmt.Errorf("%w: %s edge detection on line %d: %v", ErrConfiguration, edge, d.cfg.InputOffset, err)
	}
	d.edge = edge
	return nil
}

// RegisterEdgeCallback re-requests the input line with an event handler.
// gpiocdev binds handlers at request time, so the line is briefly released.
// The handler runs on gpiocdev's event goroutine.
func (d *RealDevice) RegisterEdgeCallback(handler func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.in == nil {
		return fmt.Errorf("%w: input line not configured", ErrDeviceNotReady)
	}
	if d.edge == 0 {
		return fmt.Errorf("%w: edge detection not armed", ErrConfiguration)
	}
	edgeOpt, err := edgeOption(d.edge)
	if err != nil {
		return err
	}

	if err := d.in.Close(); err != nil {
		return fmt.Errorf("%w: release input line %d: %v", ErrConfiguration, d.cfg.InputOffset, err)
	}
	d.in = nil

	opts := append(d.inputOptions(), edgeOpt, gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
		handler()
	}))
	line, err := d.chip.RequestLine(d.cfg.InputOffset, opts...)
	if err != nil {
		return fmt.Errorf("%w: register edge handler on line %d: %v", ErrConfiguration, d.cfg.InputOffset, err)
	}
	d.in = line
	return nil
}

// ReadInput returns the logical level; active-low inversion is done by the kernel.
func (d *RealDevice) ReadInput() (bool, error) {
	d.mu.Lock()
	in := d.in
	d.mu.Unlock()

	if in == nil {
		return false, fmt.Errorf("%w: input line not configured", ErrDeviceNotReady)
	}
	v, err := in.Value()
	if err != nil {
		return false, fmt.Errorf("%w: read line %d: %v", ErrIO, d.cfg.InputOffset, err)
	}
	return v == 1, nil
}

// ConfigureOutput requests the output line driven inactive.
func (d *RealDevice) ConfigureOutput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.openChip(); err != nil {
		return err
	}
	if err := d.checkOffset(d.cfg.OutputOffset); err != nil {
		return err
	}
	if d.out != nil {
		return nil
	}

	line, err := d.chip.RequestLine(d.cfg.OutputOffset, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("%w: request output line %d: %v", ErrDeviceNotReady, d.cfg.OutputOffset, err)
	}
	d.out = line
	return nil
}

// SetOutput drives the output line.
func (d *RealDevice) SetOutput(level bool) error {
	d.mu.Lock()
	out := d.out
	d.mu.Unlock()

	if out == nil {
		return fmt.Errorf("%w: output line not configured", ErrDeviceNotReady)
	}
	v := 0
	if level {
		v = 1
	}
	if err := out.SetValue(v); err != nil {
		return fmt.Errorf("%w: write line %d: %v", ErrIO, d.cfg.OutputOffset, err)
	}
	return nil
}

// ToggleOutput reads back the driven value and writes its inverse.
func (d *RealDevice) ToggleOutput() error {
	d.mu.Lock()
	out := d.out
	d.mu.Unlock()

	if out == nil {
		return fmt.Errorf("%w: output line not configured", ErrDeviceNotReady)
	}
	v, err := out.Value()
	if err != nil {
		return fmt.Errorf("%w: read back line %d: %v", ErrIO, d.cfg.OutputOffset, err)
	}
	if err := out.SetValue(v ^ 1); err != nil {
		return fmt.Errorf("%w: write line %d: %v", ErrIO, d.cfg.OutputOffset, err)
	}
	return nil
}

// Close releases GPIO resources.
// Both lines are returned to input with pull-down (matching Pi boot defaults)
// so the LED is not left driven after shutdown.
func (d *RealDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error

	if d.out != nil {
		if err := d.out.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear output line: %w", err))
		}
		if err := d.out.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure output line: %w", err))
		}
		if err := d.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output line: %w", err))
		}
		d.out = nil
	}
	if d.in != nil {
		if err := d.in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input line: %w", err))
		}
		d.in = nil
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func edgeOption(edge Edge) (gpiocdev.LineEdge, error) {
	switch edge {
	case EdgeRising:
		return gpiocdev.WithRisingEdge, nil
	case EdgeFalling:
		return gpiocdev.WithFallingEdge, nil
	case EdgeBoth:
		return gpiocdev.WithBothEdges, nil
	}
	var none gpiocdev.LineEdge
	return none, fmt.Errorf("%w: unsupported edge %d", ErrConfiguration, int(edge))
}
