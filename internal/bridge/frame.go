// Package bridge carries commands and events between a UI process and a
// backend over one websocket connection.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oukeidos/transpop/internal/apperrors"
)

// Path is where Server accepts connections.
const Path = "/ipc"

const (
	// MaxFrameBytes caps a single inbound message.
	MaxFrameBytes = 4 << 20
	writeTimeout  = 10 * time.Second
)

var errBadFrame = errors.New("malformed frame")

type FrameType string

const (
	FrameInvoke FrameType = "invoke"
	FrameResult FrameType = "result"
	FrameEvent  FrameType = "event"
)

// Frame is one websocket text message.
type Frame struct {
	ID      string          `json:"id,omitempty"`
	Type    FrameType       `json:"type"`
	Command string          `json:"command,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	Result  *string         `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WireError is the public half of an apperrors.Error.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toWire(err error) *WireError {
	if err == nil {
		return nil
	}
	kind, _ := apperrors.KindOf(err)
	return &WireError{Kind: string(kind), Message: apperrors.PublicMessage(err)}
}

func (w *WireError) err() error {
	if w == nil {
		return nil
	}
	return apperrors.FromWire(w.Kind, w.Message)
}

func eventFrame(name string, payload any) (Frame, error) {
	f := Frame{Type: FrameEvent, Event: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s payload: %w", name, err)
		}
		f.Payload = raw
	}
	return f, nil
}

// decodePayload turns a raw payload back into plain Go values; strings
// stay strings so text handlers work on either side of the bridge.
func decodePayload(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
