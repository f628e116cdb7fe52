package gpio

import (
	"fmt"
	"sync"
	"time"
)

// Write records a single output write made through FakeDevice.
type Write struct {
	At    time.Time
	Level bool // level after the write
	Err   bool // the write was reported as failed
}

// FakeDevice is a test double with a scripted input level and a recorded
// output history. Safe for concurrent use.
type FakeDevice struct {
	// Now stamps recorded writes. Defaults to time.Now.
	Now func() time.Time

	// Errors returned by the corresponding calls, if set.
	ConfigureInputError     error
	ConfigureInterruptError error
	RegisterCallbackError   error
	ConfigureOutputError    error

	mu         sync.Mutex
	input      bool
	output     bool
	inputReady bool
	edge       Edge
	outReady   bool
	handler    func()
	readErr    error
	writeErr   error
	reads      int
	writes     []Write
	closed     bool
}

// NewFakeDevice creates a FakeDevice with the input at the given level.
func NewFakeDevice(input bool) *FakeDevice {
	return &FakeDevice{input: input}
}

func (f *FakeDevice) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *FakeDevice) ConfigureInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureInputError != nil {
		return f.ConfigureInputError
	}
	f.inputReady = true
	return nil
}

func (f *FakeDevice) ConfigureInputInterrupt(edge Edge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureInterruptError != nil {
		return f.ConfigureInterruptError
	}
	if !f.inputReady {
		return fmt.Errorf("%w: input line not configured", ErrDeviceNotReady)
	}
	f.edge = edge
	return nil
}

func (f *FakeDevice) RegisterEdgeCallback(handler func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RegisterCallbackError != nil {
		return f.RegisterCallbackError
	}
	if f.edge == 0 {
		return fmt.Errorf("%w: edge detection not armed", ErrConfiguration)
	}
	f.handler = handler
	return nil
}

func (f *FakeDevice) ReadInput() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return false, f.readErr
	}
	if !f.inputReady {
		return false, fmt.Errorf("%w: input line not configured", ErrDeviceNotReady)
	}
	return f.input, nil
}

func (f *FakeDevice) ConfigureOutput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureOutputError != nil {
		return f.ConfigureOutputError
	}
	f.outReady = true
	f.output = false
	return nil
}

func (f *FakeDevice) SetOutput(level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(level)
}

func (f *FakeDevice) ToggleOutput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(!f.output)
}

// write must be called with f.mu held.
func (f *FakeDevice) write(level bool) error {
	if !f.outReady {
		return fmt.Errorf("%w: output line not configured", ErrDeviceNotReady)
	}
	if f.writeErr != nil {
		f.writes = append(f.writes, Write{At: f.now(), Level: f.output, Err: true})
		return f.writeErr
	}
	f.output = level
	f.writes = append(f.writes, Write{At: f.now(), Level: level})
	return nil
}

func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.handler = nil
	return nil
}

// SetInput changes the level returned by ReadInput. It does not raise an edge.
func (f *FakeDevice) SetInput(level bool) {
	f.mu.Lock()
	f.input = level
	f.mu.Unlock()
}

// Edge invokes the registered edge callback, as the driver would.
// Returns false if no callback is registered.
func (f *FakeDevice) Edge() bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}

// Press sets the input level and raises an edge.
func (f *FakeDevice) Press(level bool) bool {
	f.SetInput(level)
	return f.Edge()
}

// SetReadError makes ReadInput fail with err until cleared with nil.
func (f *FakeDevice) SetReadError(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

// SetWriteError makes SetOutput and ToggleOutput fail with err until cleared.
func (f *FakeDevice) SetWriteError(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

// Output returns the current output level.
func (f *FakeDevice) Output() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.output
}

// Writes returns a copy of the output write history.
func (f *FakeDevice) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// Reads returns the number of ReadInput calls.
func (f *FakeDevice) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Closed reports whether Close was called.
func (f *FakeDevice) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears the write history and read count.
func (f *FakeDevice) Reset() {
	f.mu.Lock()
	f.writes = nil
	f.reads = 0
	f.mu.Unlock()
}
