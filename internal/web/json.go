package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/status"
)

// MessageType identifies a live feed message.
type MessageType string

const (
	MsgSnapshot   MessageType = "snapshot"
	MsgInput      MessageType = "input"
	MsgController MessageType = "controller"
)

// WSMessage is the envelope for every message sent on /ws.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// InputPayload reports one published input state.
type InputPayload struct {
	State     string `json:"state"`
	Active    bool   `json:"active"`
	Timestamp string `json:"timestamp"`
}

// ControllerPayload reports an LED controller transition.
type ControllerPayload struct {
	Mode       string `json:"mode"`
	Toggles    int    `json:"toggles"`
	Generation uint64 `json:"generation"`
}

func snapshotMessage(snap status.Snapshot) WSMessage {
	return WSMessage{Type: MsgSnapshot, Payload: json.RawMessage(status.FormatJSON(snap))}
}

func inputMessage(state logic.InputState, at time.Time) WSMessage {
	return WSMessage{
		Type: MsgInput,
		Payload: InputPayload{
			State:     state.String(),
			Active:    state.Active,
			Timestamp: at.UTC().Format(time.RFC3339Nano),
		},
	}
}

func controllerMessage(cs logic.ControllerState) WSMessage {
	return WSMessage{
		Type: MsgController,
		Payload: ControllerPayload{
			Mode:       string(cs.Mode),
			Toggles:    cs.Toggles,
			Generation: cs.Generation,
		},
	}
}
