// Package settings loads, edits and saves the user's provider, model,
// prompt and shortcut preferences.
package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/metadata"
)

// Persisted keys.
const (
	KeyProvider           = "PROVIDER"
	KeyModel              = "MODEL"
	KeyShortcutWindowType = "SHORTCUT_WINDOW_TYPE"
	KeyOpenAIAPIKey       = "OPENAI_API_KEY"
	KeyPrompt             = "PROMPT"
	KeyDoubleClickEnabled = "DOUBLE_CLICK_ENABLED"
)

// Keys lists every persisted key.
var Keys = []string{KeyProvider, KeyModel, KeyShortcutWindowType, KeyOpenAIAPIKey, KeyPrompt, KeyDoubleClickEnabled}

// Preferences is the key-value store settings live in. fyne.Preferences
// satisfies it, as does kvstore.FileStore.
type Preferences interface {
	String(key string) string
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
	BoolWithFallback(key string, fallback bool) bool
	SetBool(key string, value bool)
	RemoveValue(key string)
}

// ShortcutWindowType selects which window the global shortcut opens.
type ShortcutWindowType string

const (
	WindowPopup ShortcutWindowType = "popup"
	WindowMain  ShortcutWindowType = "main"
)

func ParseShortcutWindowType(s string) (ShortcutWindowType, error) {
	switch t := ShortcutWindowType(strings.ToLower(strings.TrimSpace(s))); t {
	case WindowPopup, WindowMain:
		return t, nil
	}
	return "", fmt.Errorf("invalid shortcut window type %q (valid: popup, main)", s)
}

// Prompt is a custom instruction for one mode.
type Prompt = command.Prompt

// AppSettings is the user-facing configuration.
type AppSettings struct {
	Provider           metadata.Provider
	Model              string
	Prompt             *Prompt
	ShortcutWindowType ShortcutWindowType
	APIKey             string
	DoubleClickEnabled bool
}

// Defaults returns the settings used before anything is loaded.
func Defaults() AppSettings {
	p, _ := metadata.LookupProvider(metadata.DefaultProvider)
	return AppSettings{
		Provider:           p,
		Model:              "phi3",
		ShortcutWindowType: WindowPopup,
	}
}

// PromptFor returns the custom prompt text when it targets mode.
func (s AppSettings) PromptFor(mode string) (string, bool) {
	if s.Prompt == nil || s.Prompt.Type != mode || strings.TrimSpace(s.Prompt.Value) == "" {
		return "", false
	}
	return s.Prompt.Value, true
}

// Load reads settings from prefs on top of the defaults. It never fails:
// unknown values are ignored and a corrupt PROMPT is removed from prefs.
func Load(prefs Preferences) AppSettings {
	s := Defaults()
	if prefs == nil {
		return s
	}

	if name := prefs.String(KeyProvider); name != "" {
		if p, ok := metadata.LookupProvider(name); ok {
			s.Provider = p
		} else {
			logger.Warn("Ignoring unknown persisted provider", "provider", name)
		}
	}
	s.Model = prefs.StringWithFallback(KeyModel, s.Model)

	if raw := prefs.String(KeyShortcutWindowType); raw != "" {
		if t, err := ParseShortcutWindowType(raw); err == nil {
			s.ShortcutWindowType = t
		} else {
			logger.Warn("Ignoring invalid shortcut window type", "value", raw)
		}
	}

	// Other providers keep their keys in the keychain only.
	if s.Provider.Name == "openai" {
		s.APIKey = prefs.String(KeyOpenAIAPIKey)
	}
	s.DoubleClickEnabled = prefs.BoolWithFallback(KeyDoubleClickEnabled, false)

	if p, ok := decodePrompt(prefs.String(KeyPrompt)); ok {
		s.Prompt = p
	} else if prefs.String(KeyPrompt) != "" {
		logger.Warn("Purging corrupt persisted prompt", "key", KeyPrompt)
		prefs.RemoveValue(KeyPrompt)
	}
	return s
}

// decodePrompt parses a persisted PROMPT value. ok is false for an empty,
// "undefined" or unparsable value.
func decodePrompt(raw string) (*Prompt, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" || raw == `"undefined"` || raw == "null" {
		return nil, false
	}
	var p Prompt
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if !command.IsTextCommand(p.Type) {
		return nil, false
	}
	return &p, true
}

// EncodePrompt is the persisted form of p.
func EncodePrompt(p Prompt) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}
	return string(raw), nil
}

// Write stores s into prefs. The API key is only written when set and the
// provider is openai.
func Write(prefs Preferences, s AppSettings) error {
	prefs.SetString(KeyProvider, s.Provider.Name)
	prefs.SetString(KeyModel, s.Model)
	prefs.SetString(KeyShortcutWindowType, string(s.ShortcutWindowType))
	prefs.SetBool(KeyDoubleClickEnabled, s.DoubleClickEnabled)
	if s.APIKey != "" && s.Provider.Name == "openai" {
		prefs.SetString(KeyOpenAIAPIKey, s.APIKey)
	}
	if s.Prompt == nil {
		prefs.RemoveValue(KeyPrompt)
		return nil
	}
	raw, err := EncodePrompt(*s.Prompt)
	if err != nil {
		return err
	}
	prefs.SetString(KeyPrompt, raw)
	return nil
}

// SaveRequest builds the save_settings arguments for s.
func (s AppSettings) SaveRequest() command.SaveRequest {
	req := command.SaveRequest{
		APIKey:             command.Opt(s.APIKey),
		ShortcutWindowType: command.Opt(string(s.ShortcutWindowType)),
		Provider:           command.Opt(s.Provider.Name),
		Model:              command.Opt(s.Model),
	}
	if s.Prompt != nil {
		p := *s.Prompt
		req.Prompt = &p
	}
	return req
}
