// Package window names the app's windows and lets a backend drive them,
// either in-process or across the bridge.
package window

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
)

// Window labels.
const (
	Main          = "main"
	Popup         = "translate-popup"
	SelectionIcon = "selection-icon"
)

// Labels lists every known window.
var Labels = []string{Main, Popup, SelectionIcon}

// Event carries window operations from a backend to the UI process.
const Event = "window-op"

type Action string

const (
	Show  Action = "show"
	Hide  Action = "hide"
	Focus Action = "focus"
)

// Op is the payload of Event.
type Op struct {
	Action Action `json:"action"`
	Label  string `json:"label"`
}

// Manager performs window operations. The GUI implements it with fyne
// windows; Remote forwards to one.
type Manager interface {
	Show(label string) error
	Hide(label string) error
	Focus(label string) error
}

func known(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Apply runs op against m.
func Apply(m Manager, op Op) error {
	if !known(op.Label) {
		return fmt.Errorf("unknown window %q", op.Label)
	}
	switch op.Action {
	case Show:
		return m.Show(op.Label)
	case Hide:
		return m.Hide(op.Label)
	case Focus:
		return m.Focus(op.Label)
	}
	return fmt.Errorf("unknown window action %q", op.Action)
}

// Raise shows label and gives it focus. Focus is attempted even when Show
// fails.
func Raise(m Manager, label string) error {
	return errors.Join(m.Show(label), m.Focus(label))
}

// Remote is a Manager that emits ops for a UI process to apply.
type Remote struct {
	emit events.Emitter
}

func NewRemote(emit events.Emitter) *Remote {
	return &Remote{emit: emit}
}

func (r *Remote) Show(label string) error  { return r.send(Show, label) }
func (r *Remote) Hide(label string) error  { return r.send(Hide, label) }
func (r *Remote) Focus(label string) error { return r.send(Focus, label) }

func (r *Remote) send(a Action, label string) error {
	if !known(label) {
		return fmt.Errorf("unknown window %q", label)
	}
	return r.emit.Emit(Event, Op{Action: a, Label: label})
}

// Serve applies ops arriving on src to m until the returned func is called.
func Serve(src events.Source, m Manager) (events.Unsubscribe, error) {
	return src.Listen(Event, func(payload any) {
		op, err := decodeOp(payload)
		if err != nil {
			logger.Warn("Dropping malformed window op", "error", err)
			return
		}
		if err := Apply(m, op); err != nil {
			logger.Warn("Window op failed", "action", op.Action, "label", op.Label, "error", err)
		}
	})
}

// decodeOp accepts an Op from the in-process bus or its JSON-decoded form
// from the bridge.
func decodeOp(payload any) (Op, error) {
	switch v := payload.(type) {
	case Op:
		return v, nil
	case *Op:
		if v == nil {
			return Op{}, fmt.Errorf("nil op")
		}
		return *v, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Op{}, err
	}
	var op Op
	if err := json.Unmarshal(raw, &op); err != nil {
		return Op{}, err
	}
	if op.Action == "" || op.Label == "" {
		return Op{}, fmt.Errorf("incomplete op %s", raw)
	}
	return op, nil
}
