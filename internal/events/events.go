// Package events is the publish/subscribe channel between the shell, the
// windows and the backend.
package events

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/oukeidos/transpop/internal/safe"
)

// Event names shared by the backend and the windows.
const (
	ShortcutPopupTranslate = "shortcut-popup-translate"
	ShortcutQuickTranslate = "shortcut-quickTranslate"
	SetSelectedText        = "set-selected-text"
	IconClicked            = "icon-clicked"
	// ShortcutTriggered asks the backend to run its shortcut handler.
	ShortcutTriggered = "shortcut-triggered"
	AppShutdown       = "app-shutdown"
)

// ShortcutEvents are the events the shortcut relay republishes.
var ShortcutEvents = []string{ShortcutPopupTranslate, ShortcutQuickTranslate}

// Handler receives an event payload. Payloads from outside the process
// are untyped; handlers check what they got.
type Handler func(payload any)

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Source delivers events by name.
type Source interface {
	Listen(name string, h Handler) (Unsubscribe, error)
}

// Emitter publishes events by name.
type Emitter interface {
	Emit(name string, payload any) error
}

// Bus is an in-process Source and Emitter. Handlers run synchronously on the
// emitting goroutine in subscription order, each behind a panic guard.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[uint64]Handler)}
}

func (b *Bus) Listen(name string, h Handler) (Unsubscribe, error) {
	if name == "" {
		return nil, fmt.Errorf("event name is empty")
	}
	if h == nil {
		return nil, fmt.Errorf("nil handler for %s", name)
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[name] == nil {
		b.subs[name] = make(map[uint64]Handler)
	}
	b.subs[name][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[name], id)
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
			b.mu.Unlock()
		})
	}, nil
}

func (b *Bus) Emit(name string, payload any) error {
	for _, h := range b.handlers(name) {
		safe.Do("events."+name, func() { h(payload) })
	}
	return nil
}

func (b *Bus) handlers(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.subs[name]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Handler, 0, len(ids))
	for _, id := range ids {
		out = append(out, set[id])
	}
	return out
}

// Tee fans one emit out to every emitter. Every emitter is tried; the
// errors are joined.
type Tee []Emitter

func (t Tee) Emit(name string, payload any) error {
	var errs []error
	for _, e := range t {
		if err := e.Emit(name, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Group collects subscriptions made at mount so they can be released
// together at unmount.
type Group struct {
	mu     sync.Mutex
	unsubs []Unsubscribe
	closed bool
}

// Add registers h on src under name. After Close, Add fails.
func (g *Group) Add(src Source, name string, h Handler) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("subscription group closed")
	}
	unsub, err := src.Listen(name, h)
	if err != nil {
		return fmt.Errorf("listen %s: %w", name, err)
	}
	g.unsubs = append(g.unsubs, unsub)
	return nil
}

// Close releases every subscription in reverse order.
func (g *Group) Close() {
	g.mu.Lock()
	unsubs := g.unsubs
	g.unsubs = nil
	g.closed = true
	g.mu.Unlock()

	for i := len(unsubs) - 1; i >= 0; i-- {
		unsubs[i]()
	}
}
