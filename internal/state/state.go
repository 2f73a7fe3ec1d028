// Package state holds the per-window translation state: language pair,
// input text, result slots, the translating flag and the current mode.
package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oukeidos/transpop/internal/language"
)

type Mode string

const (
	Translate Mode = "translate"
	Correct   Mode = "correct"
	Refine    Mode = "refine"
)

// Modes returns the modes in tab order.
func Modes() []Mode {
	return []Mode{Translate, Correct, Refine}
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (valid: translate, correct, refine)", s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case Translate, Correct, Refine:
		return true
	}
	return false
}

// Title is the tab caption for the mode.
func (m Mode) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// PendingText fills a result slot while its request is outstanding.
const PendingText = "..."

// ResultTexts maps a mode to its last result. A missing key means the mode
// has not been computed.
type ResultTexts map[Mode]string

func (r ResultTexts) Clone() ResultTexts {
	out := make(ResultTexts, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Snapshot is a copy of the window state at one point in time.
type Snapshot struct {
	Language    language.Config
	Input       string
	Results     ResultTexts
	Translating bool
	Mode        Mode
}

// Result returns the slot for m and whether it is set.
func (s Snapshot) Result(m Mode) (string, bool) {
	v, ok := s.Results[m]
	return v, ok
}

func (s Snapshot) clone() Snapshot {
	s.Results = s.Results.Clone()
	return s
}

// Listener observes every committed change.
type Listener func(Snapshot)

// Store owns one window's state. All reads and writes go through its lock.
// Listeners never run under that lock; they see snapshots in commit order.
type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	nextID    uint64
	listeners map[uint64]Listener
	queue     []Snapshot
	draining  bool
}

// NewStore returns a store with the default language pair, no results and
// the translate mode selected.
func NewStore() *Store {
	return &Store{
		snap: Snapshot{
			Language: language.DefaultConfig(),
			Results:  ResultTexts{},
			Mode:     Translate,
		},
		listeners: make(map[uint64]Listener),
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Subscribe registers fn for change notifications. The returned function
// removes it.
//
// Notifications are delivered one at a time, in commit order, on the
// goroutine of a writer. A writer that finds delivery already running on
// another goroutine queues its snapshot and returns, so a listener may
// write to the store; that write is delivered after the listener returns.
// Listeners must not block on other writers.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Update applies fn to the state under the lock and notifies listeners.
// fn must not call back into the store.
func (s *Store) Update(fn func(*Snapshot)) {
	s.Stage(fn)()
}

// Stage applies fn like Update but leaves notification to the returned
// function. Callers holding a lock of their own commit under it and notify
// after releasing it; commit order is kept either way.
func (s *Store) Stage(fn func(*Snapshot)) (notify func()) {
	s.mu.Lock()
	fn(&s.snap)
	if s.snap.Results == nil {
		s.snap.Results = ResultTexts{}
	}
	s.queue = append(s.queue, s.snap.clone())
	s.mu.Unlock()
	return s.drain
}

func (s *Store) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			finished = true
			s.mu.Unlock()
			return
		}
		snap := s.queue[0]
		s.queue[0] = Snapshot{}
		s.queue = s.queue[1:]
		ids := make([]uint64, 0, len(s.listeners))
		for id := range s.listeners {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		listeners := make([]Listener, 0, len(ids))
		for _, id := range ids {
			listeners = append(listeners, s.listeners[id])
		}
		s.mu.Unlock()

		for _, l := range listeners {
			l(snap)
		}
	}
}

func (s *Store) SetLanguage(cfg language.Config) {
	s.Update(func(st *Snapshot) { st.Language = cfg })
}

// SwapLanguages exchanges source and target and nothing else.
func (s *Store) SwapLanguages() {
	s.Update(func(st *Snapshot) { st.Language = st.Language.Swap() })
}

func (s *Store) SetInput(text string) {
	s.Update(func(st *Snapshot) { st.Input = text })
}

func (s *Store) SetMode(m Mode) {
	s.Update(func(st *Snapshot) { st.Mode = m })
}
