package main

import (
	"strings"
	"testing"

	"github.com/oukeidos/transpop/internal/kvstore"
	"github.com/oukeidos/transpop/internal/settings"
)

func loadSaved(t *testing.T, path string) settings.AppSettings {
	t.Helper()
	store, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	return settings.Load(store)
}

func TestSettings_ShowDefaults(t *testing.T) {
	withKeyStubs(t, true, "", nil, nil)
	flag, _ := tempSettings(t)

	out, err := executeCommand(t, "settings", flag)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"Provider:         ollama", "Shortcut window:  popup", "Custom prompt:    none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "API key:") {
		t.Fatalf("ollama needs no key line:\n%s", out)
	}
}

func TestSettings_SetProviderAndModel(t *testing.T) {
	withKeyStubs(t, true, "", nil, nil)
	flag, path := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "provider", "groq", flag); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	got := loadSaved(t, path)
	if got.Provider.Name != "groq" {
		t.Fatalf("provider = %q", got.Provider.Name)
	}
	if got.Model != "llama-3.1-8b-instant" {
		t.Fatalf("model should reset to the provider's first model, got %q", got.Model)
	}

	if _, err := executeCommand(t, "settings", "set", "model", "llama-3.3-70b-versatile", flag); err != nil {
		t.Fatalf("set model: %v", err)
	}
	if got := loadSaved(t, path); got.Model != "llama-3.3-70b-versatile" || got.Provider.Name != "groq" {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestSettings_SetRejectsInvalidValues(t *testing.T) {
	withKeyStubs(t, true, "", nil, nil)
	flag, _ := tempSettings(t)

	cases := [][]string{
		{"settings", "set", "provider", "nope", flag},
		{"settings", "set", "shortcut-window", "sidebar", flag},
		{"settings", "set", "selection-icon", "maybe", flag},
		{"settings", "set", "colour", "blue", flag},
		{"settings", "set", "prompt", "Be terse", "--mode", "summarize", flag},
		{"settings", "set", "model", flag},
	}
	for _, args := range cases {
		if _, err := executeCommand(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestSettings_SetPromptAndClear(t *testing.T) {
	withKeyStubs(t, true, "", nil, nil)
	flag, path := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "prompt", "Translate like a poet", "--mode", "translate", flag); err != nil {
		t.Fatalf("set prompt: %v", err)
	}
	got := loadSaved(t, path)
	if got.Prompt == nil || got.Prompt.Type != "translate" || got.Prompt.Value != "Translate like a poet" {
		t.Fatalf("prompt = %+v", got.Prompt)
	}

	if _, err := executeCommand(t, "settings", "set", "prompt", flag); err != nil {
		t.Fatalf("clear prompt: %v", err)
	}
	if got := loadSaved(t, path); got.Prompt != nil {
		t.Fatalf("prompt should be cleared, got %+v", got.Prompt)
	}
}

func TestSettings_SetShortcutAndSelectionIcon(t *testing.T) {
	withKeyStubs(t, true, "", nil, nil)
	flag, path := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "shortcut-window", "main", flag); err != nil {
		t.Fatalf("set shortcut-window: %v", err)
	}
	if _, err := executeCommand(t, "settings", "set", "selection-icon", "true", flag); err != nil {
		t.Fatalf("set selection-icon: %v", err)
	}
	got := loadSaved(t, path)
	if got.ShortcutWindowType != settings.WindowMain || !got.DoubleClickEnabled {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestSettings_SetAPIKey_Keychain(t *testing.T) {
	stubs := withKeyStubs(t, true, "sk-groq-prompted", nil, nil)
	flag, path := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "provider", "groq", flag); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	if _, err := executeCommand(t, "settings", "set", "api-key", flag); err != nil {
		t.Fatalf("set api-key: %v", err)
	}
	if stubs.promptCalls != 1 {
		t.Fatalf("prompt calls = %d", stubs.promptCalls)
	}
	if stubs.saved["groq"] != "sk-groq-prompted" {
		t.Fatalf("saved = %v", stubs.saved)
	}
	store, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if v := store.String(settings.KeyOpenAIAPIKey); v != "" {
		t.Fatalf("groq key must not land in the settings file, got %q", v)
	}
}

func TestSettings_SetAPIKey_OpenAIMirrored(t *testing.T) {
	stubs := withKeyStubs(t, false, "", nil, nil)
	flag, path := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "provider", "openai", flag); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	out, err := executeCommand(t, "settings", "set", "api-key", "sk-openai-argument", flag)
	if err != nil {
		t.Fatalf("set api-key: %v", err)
	}
	if strings.Contains(out, "sk-openai-argument") {
		t.Fatalf("output leaked key: %s", out)
	}
	if stubs.saved["openai"] != "sk-openai-argument" {
		t.Fatalf("saved = %v", stubs.saved)
	}
	if got := loadSaved(t, path); got.APIKey != "sk-openai-argument" {
		t.Fatalf("openai key should be kept in settings, got %q", got.APIKey)
	}

	show, err := executeCommand(t, "settings", "show", flag)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(show, "sk-openai-argument") {
		t.Fatalf("show leaked key: %s", show)
	}
	if !strings.Contains(show, "source=settings file") {
		t.Fatalf("expected settings file source:\n%s", show)
	}
}

func TestSettings_SetAPIKey_NonInteractiveWithoutValue(t *testing.T) {
	stubs := withKeyStubs(t, false, "sk", nil, nil)
	flag, _ := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "provider", "gemini", flag); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	if _, err := executeCommand(t, "settings", "set", "api-key", flag); err == nil {
		t.Fatal("expected error without a terminal")
	}
	if stubs.promptCalls != 0 || len(stubs.saved) != 0 {
		t.Fatalf("unexpected key handling: %+v", stubs)
	}
}

func TestSettings_SetAPIKey_OllamaRejected(t *testing.T) {
	withKeyStubs(t, true, "sk", nil, nil)
	flag, _ := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "api-key", "sk-x", flag); err == nil {
		t.Fatal("expected error: ollama takes no key")
	}
}

func TestSettings_ResetWithYes(t *testing.T) {
	withKeyStubs(t, true, "", nil, nil)
	flag, path := tempSettings(t)

	if _, err := executeCommand(t, "settings", "set", "provider", "gemini", flag); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	out, err := executeCommand(t, "settings", "reset", "--yes", flag)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "Settings reset.") {
		t.Fatalf("unexpected output: %s", out)
	}
	if got := loadSaved(t, path); got.Provider.Name != "ollama" {
		t.Fatalf("provider should be back to default, got %q", got.Provider.Name)
	}
}
