// Package status provides a thread-safe status tracker for the button-led daemon.
// It is read by HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-led/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip       string
	ButtonPin  int
	LEDPin     int
	DebounceMs int64
	Broker     string
	HTTPAddr   string
}

// Counts are monotonically increasing counters gathered from the pipeline.
type Counts struct {
	Edges        uint64
	Settles      uint64
	ReadFailures uint64
	Publishes    uint64
	Fired        uint64
	Skipped      uint64
	StaleFirings uint64
	MQTTSent     uint64
	MQTTFailed   uint64
	MQTTDropped  uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Input         logic.InputState
	InputAt       time.Time
	Controller    logic.ControllerState
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	now func() time.Time

	mu        sync.RWMutex
	snap      Snapshot
	counts    func() Counts
	publishes uint64
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		now: time.Now,
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// OnInput records a published input state. It is subscribed to the event
// channel and runs on the scheduler worker.
func (t *Tracker) OnInput(state logic.InputState) {
	at := t.now()
	t.mu.Lock()
	t.snap.Input = state
	t.snap.InputAt = at
	t.publishes++
	t.mu.Unlock()
}

// SetController records the latest controller state.
func (t *Tracker) SetController(cs logic.ControllerState) {
	t.mu.Lock()
	t.snap.Controller = cs
	t.mu.Unlock()
}

// SetCountsFunc installs a source of pipeline counters, sampled on every
// Snapshot. The Publishes field is always filled in by the tracker itself.
func (t *Tracker) SetCountsFunc(fn func() Counts) {
	t.mu.Lock()
	t.counts = fn
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	fn := t.counts
	publishes := t.publishes
	t.mu.RUnlock()

	if fn != nil {
		s.Counts = fn()
	}
	s.Counts.Publishes = publishes
	s.Now = t.now()
	return s
}
