package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Button        ButtonJSON     `json:"button"`
	LED           ControllerJSON `json:"led"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"counts"`
	Config        ConfigJSON     `json:"config"`
}

// ButtonJSON is the latest published input state.
type ButtonJSON struct {
	State     string `json:"state"`
	Active    bool   `json:"active"`
	ChangedAt string `json:"changed_at,omitempty"`
}

// ControllerJSON is the LED controller state.
type ControllerJSON struct {
	Mode       string `json:"mode"`
	Toggles    int    `json:"toggles"`
	Generation uint64 `json:"generation"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of pipeline counters.
type CountsJSON struct {
	Edges        uint64 `json:"edges"`
	Settles      uint64 `json:"settles"`
	ReadFailures uint64 `json:"read_failures"`
	Publishes    uint64 `json:"publishes"`
	Fired        uint64 `json:"actions_fired"`
	Skipped      uint64 `json:"actions_skipped"`
	StaleFirings uint64 `json:"stale_firings"`
	MQTTSent     uint64 `json:"mqtt_sent"`
	MQTTFailed   uint64 `json:"mqtt_failed"`
	MQTTDropped  uint64 `json:"mqtt_dropped"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip       string `json:"chip"`
	ButtonPin  int    `json:"button_pin"`
	LEDPin     int    `json:"led_pin"`
	DebounceMs int64  `json:"debounce_ms"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Controller.Mode)
	if mode == "" {
		mode = "IDLE"
	}

	inner := StatusInner{
		Button: ButtonJSON{
			State:  snap.Input.String(),
			Active: snap.Input.Active,
		},
		LED: ControllerJSON{
			Mode:       mode,
			Toggles:    snap.Controller.Toggles,
			Generation: snap.Controller.Generation,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Edges:        snap.Counts.Edges,
			Settles:      snap.Counts.Settles,
			ReadFailures: snap.Counts.ReadFailures,
			Publishes:    snap.Counts.Publishes,
			Fired:        snap.Counts.Fired,
			Skipped:      snap.Counts.Skipped,
			StaleFirings: snap.Counts.StaleFirings,
			MQTTSent:     snap.Counts.MQTTSent,
			MQTTFailed:   snap.Counts.MQTTFailed,
			MQTTDropped:  snap.Counts.MQTTDropped,
		},
		Config: ConfigJSON{
			Chip:       snap.Config.Chip,
			ButtonPin:  snap.Config.ButtonPin,
			LEDPin:     snap.Config.LEDPin,
			DebounceMs: snap.Config.DebounceMs,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
	if !snap.InputAt.IsZero() {
		inner.Button.ChangedAt = snap.InputAt.UTC().Format(time.RFC3339Nano)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
