// Package relay bridges the shell's global-shortcut events into a window's
// own event bus.
package relay

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
)

// Marker prefixes captured text in shortcut payloads.
const Marker = "text:"

// Clean extracts the captured text from a shortcut payload: everything after
// the first Marker, trimmed, with at most one double quote removed from each
// end, trimmed again.
func Clean(raw string) string {
	if i := strings.Index(raw, Marker); i >= 0 {
		raw = raw[i+len(Marker):]
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

// Relay republishes shortcut events from an external source onto an internal
// emitter under the same name, with the payload cleaned. It never touches
// window state.
type Relay struct {
	external events.Source
	internal events.Emitter
	names    []string

	mu     sync.Mutex
	active bool
	group  *events.Group
}

// New returns a relay for names, or for events.ShortcutEvents when none are given.
func New(external events.Source, internal events.Emitter, names ...string) *Relay {
	if len(names) == 0 {
		names = events.ShortcutEvents
	}
	return &Relay{external: external, internal: internal, names: names}
}

// Start subscribes to the external source. A failed subscription releases
// whatever was already acquired.
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil
	}

	group := &events.Group{}
	for _, name := range r.names {
		if err := group.Add(r.external, name, r.handler(name)); err != nil {
			group.Close()
			return fmt.Errorf("relay start: %w", err)
		}
	}
	r.group = group
	r.active = true
	return nil
}

// Stop drops the subscriptions. Events already in flight are ignored.
func (r *Relay) Stop() {
	r.mu.Lock()
	r.active = false
	group := r.group
	r.group = nil
	r.mu.Unlock()

	if group != nil {
		group.Close()
	}
}

func (r *Relay) isActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Relay) handler(name string) events.Handler {
	return func(payload any) {
		if !r.isActive() {
			return
		}
		raw, ok := payload.(string)
		if !ok {
			logger.Warn("Dropped shortcut event with invalid payload", "event", name, "payload_type", fmt.Sprintf("%T", payload))
			return
		}
		if err := r.internal.Emit(name, Clean(raw)); err != nil {
			logger.Warn("Shortcut republish failed", "event", name, "error", err)
		}
	}
}
