package kvstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oukeidos/transpop/internal/settings"
)

var _ settings.Preferences = (*FileStore)(nil)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "settings.yaml"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store, got %v", s.Keys())
	}
	if got := s.StringWithFallback("MODEL", "phi3"); got != "phi3" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestSetPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.SetString("PROVIDER", "groq")
	s.SetBool("DOUBLE_CLICK_ENABLED", true)
	s.SetString("PROMPT", `{"type":"translate"}`)
	if err := s.Err(); err != nil {
		t.Fatalf("write error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.String("PROVIDER") != "groq" {
		t.Fatalf("PROVIDER = %q", reopened.String("PROVIDER"))
	}
	if !reopened.BoolWithFallback("DOUBLE_CLICK_ENABLED", false) {
		t.Fatalf("DOUBLE_CLICK_ENABLED not persisted")
	}
	if reopened.String("PROMPT") != `{"type":"translate"}` {
		t.Fatalf("PROMPT = %q", reopened.String("PROMPT"))
	}

	reopened.RemoveValue("PROMPT")
	again, _ := Open(path)
	if again.String("PROMPT") != "" {
		t.Fatalf("RemoveValue not persisted")
	}
}

func TestOpen_CorruptFileFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("PROVIDER: [unclosed"), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store, got %v", s.Keys())
	}
	s.SetString("MODEL", "gemma3")
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "MODEL: gemma3") {
		t.Fatalf("corrupt file not replaced: %q", data)
	}
}

func TestBoolFromString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("DOUBLE_CLICK_ENABLED: \"true\"\nMODEL: 3\n"), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !s.BoolWithFallback("DOUBLE_CLICK_ENABLED", false) {
		t.Fatalf("string bool not parsed")
	}
	if s.String("MODEL") != "3" {
		t.Fatalf("non-string value = %q", s.String("MODEL"))
	}
}

func TestSettingsLoadOverFileStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.SetString(settings.KeyPrompt, "undefined")

	got := settings.Load(s)
	if got.Prompt != nil {
		t.Fatalf("expected no prompt")
	}
	if s.String(settings.KeyPrompt) != "" {
		t.Fatalf("expected PROMPT purged from file store")
	}
}

func TestClear(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	s.SetString("MODEL", "x")
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("Clear left %v", s.Keys())
	}
}
