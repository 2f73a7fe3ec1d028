package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/metadata"
)

// Manager owns one window's settings: loaded once, edited in memory,
// flushed by Save.
type Manager struct {
	prefs   Preferences
	invoker command.Invoker

	mu      sync.Mutex
	current AppSettings
	loaded  bool
}

func NewManager(prefs Preferences, invoker command.Invoker) *Manager {
	return &Manager{prefs: prefs, invoker: invoker, current: Defaults()}
}

// Load reads persisted settings the first time it is called and returns
// the current value.
func (m *Manager) Load() AppSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		m.current = Load(m.prefs)
		m.loaded = true
	}
	return m.current
}

// Current returns the in-memory settings, including unsaved edits.
func (m *Manager) Current() AppSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) update(fn func(*AppSettings)) {
	m.mu.Lock()
	fn(&m.current)
	m.mu.Unlock()
}

// SetProvider selects a provider by name. The model is reset to the
// provider's first model when the current one is not offered by it, and a
// typed API key is dropped when the provider changes.
func (m *Manager) SetProvider(name string) error {
	p, ok := metadata.LookupProvider(name)
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	m.update(func(s *AppSettings) {
		if s.Provider.Name != p.Name {
			s.APIKey = ""
		}
		s.Provider = p
		for _, model := range p.Models {
			if model == s.Model {
				return
			}
		}
		if len(p.Models) > 0 {
			s.Model = p.Models[0]
		}
	})
	return nil
}

func (m *Manager) SetModel(model string) {
	m.update(func(s *AppSettings) { s.Model = model })
}

// SetPrompt sets or, with nil, clears the custom prompt.
func (m *Manager) SetPrompt(p *Prompt) error {
	if p != nil && !command.IsTextCommand(p.Type) {
		return fmt.Errorf("invalid prompt type %q", p.Type)
	}
	m.update(func(s *AppSettings) {
		if p == nil {
			s.Prompt = nil
			return
		}
		cp := *p
		s.Prompt = &cp
	})
	return nil
}

func (m *Manager) SetShortcutWindowType(t ShortcutWindowType) {
	m.update(func(s *AppSettings) { s.ShortcutWindowType = t })
}

func (m *Manager) SetAPIKey(key string) {
	m.update(func(s *AppSettings) { s.APIKey = key })
}

func (m *Manager) SetDoubleClickEnabled(v bool) {
	m.update(func(s *AppSettings) { s.DoubleClickEnabled = v })
}

// Save flushes the current settings to prefs and sends them to the backend.
// It reports false on any failure; the in-memory edits are kept either way.
func (m *Manager) Save(ctx context.Context) bool {
	s := m.Current()

	if m.prefs != nil {
		if err := Write(m.prefs, s); err != nil {
			logger.Error("Failed to persist settings", "error", err)
			return false
		}
	}
	if m.invoker != nil {
		if err := m.invoker.SaveSettings(ctx, s.SaveRequest()); err != nil {
			logger.Error("Backend rejected settings", "error", err)
			return false
		}
	}
	logger.Info("Settings saved", "provider", s.Provider.Name, "model", s.Model)
	return true
}
