package settings

import (
	"context"
	"errors"
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/oukeidos/transpop/internal/command"
)

func TestLoad_Defaults(t *testing.T) {
	prefs := test.NewTempApp(t).Preferences()
	s := Load(prefs)
	if s.Provider.Name != "ollama" || s.Model != "phi3" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.ShortcutWindowType != WindowPopup || s.Prompt != nil || s.DoubleClickEnabled {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestLoad_UndefinedPromptIsPurged(t *testing.T) {
	for _, raw := range []string{"undefined", `"undefined"`, "{not json", `{"type":"summarize"}`} {
		prefs := test.NewTempApp(t).Preferences()
		prefs.SetString(KeyPrompt, raw)

		s := Load(prefs)
		if s.Prompt != nil {
			t.Fatalf("%q: expected no prompt, got %+v", raw, s.Prompt)
		}
		if got := prefs.String(KeyPrompt); got != "" {
			t.Fatalf("%q: expected PROMPT purged, still %q", raw, got)
		}
	}
}

func TestLoad_PersistedValues(t *testing.T) {
	prefs := test.NewTempApp(t).Preferences()
	prefs.SetString(KeyProvider, "gemini")
	prefs.SetString(KeyModel, "gemini-2.5-flash")
	prefs.SetString(KeyShortcutWindowType, "main")
	prefs.SetString(KeyOpenAIAPIKey, "sk-test")
	prefs.SetString(KeyPrompt, `{"type":"correct","value":"Fix grammar only."}`)
	prefs.SetBool(KeyDoubleClickEnabled, true)

	s := Load(prefs)
	if s.Provider.Name != "gemini" || s.Model != "gemini-2.5-flash" {
		t.Fatalf("provider/model = %s/%s", s.Provider.Name, s.Model)
	}
	if s.ShortcutWindowType != WindowMain || !s.DoubleClickEnabled {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.APIKey != "" {
		t.Fatalf("the stored OpenAI key must not load for gemini")
	}
	prefs.SetString(KeyProvider, "openai")
	if got := Load(prefs).APIKey; got != "sk-test" {
		t.Fatalf("APIKey for openai = %q", got)
	}
	if v, ok := s.PromptFor(command.Correct); !ok || v != "Fix grammar only." {
		t.Fatalf("PromptFor(correct) = (%q, %v)", v, ok)
	}
	if _, ok := s.PromptFor(command.Translate); ok {
		t.Fatalf("prompt must only apply to its own mode")
	}
}

func TestLoad_IgnoresUnknownValues(t *testing.T) {
	prefs := test.NewTempApp(t).Preferences()
	prefs.SetString(KeyProvider, "anthropic")
	prefs.SetString(KeyShortcutWindowType, "tray")

	s := Load(prefs)
	if s.Provider.Name != "ollama" || s.ShortcutWindowType != WindowPopup {
		t.Fatalf("unknown values must fall back to defaults: %+v", s)
	}
}

func TestWriteThenLoad(t *testing.T) {
	prefs := test.NewTempApp(t).Preferences()
	in := Defaults()
	in.Prompt = &Prompt{Type: command.Refine, Value: "Make it formal."}
	in.DoubleClickEnabled = true
	if err := Write(prefs, in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := Load(prefs)
	if out.Prompt == nil || *out.Prompt != *in.Prompt || !out.DoubleClickEnabled {
		t.Fatalf("round trip lost data: %+v", out)
	}

	in.Prompt = nil
	if err := Write(prefs, in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if prefs.String(KeyPrompt) != "" {
		t.Fatalf("clearing the prompt must remove the key")
	}
}

type fakeInvoker struct {
	saveErr error
	saved   []command.SaveRequest
}

func (f *fakeInvoker) Invoke(context.Context, string, command.Request) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeInvoker) SaveSettings(_ context.Context, req command.SaveRequest) error {
	f.saved = append(f.saved, req)
	return f.saveErr
}

func TestManager_SaveSendsCurrentSettings(t *testing.T) {
	prefs := test.NewTempApp(t).Preferences()
	inv := &fakeInvoker{}
	m := NewManager(prefs, inv)
	m.Load()

	if err := m.SetProvider("openai"); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}
	if got := m.Current().Model; got != "gpt-4.1-nano" {
		t.Fatalf("model should reset to provider's first model, got %q", got)
	}
	m.SetAPIKey("sk-new")
	m.SetShortcutWindowType(WindowMain)

	if !m.Save(context.Background()) {
		t.Fatalf("Save() = false")
	}
	if len(inv.saved) != 1 {
		t.Fatalf("expected one save_settings call, got %d", len(inv.saved))
	}
	req := inv.saved[0]
	if command.Value(req.Provider) != "openai" || command.Value(req.APIKey) != "sk-new" || command.Value(req.ShortcutWindowType) != "main" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if prefs.String(KeyProvider) != "openai" {
		t.Fatalf("prefs not flushed")
	}
}

func TestManager_SaveFailureKeepsEdits(t *testing.T) {
	inv := &fakeInvoker{saveErr: errors.New("backend down")}
	m := NewManager(test.NewTempApp(t).Preferences(), inv)
	m.Load()
	m.SetModel("llama3")

	if m.Save(context.Background()) {
		t.Fatalf("Save() = true, want false")
	}
	if m.Current().Model != "llama3" {
		t.Fatalf("unsaved edit lost: %+v", m.Current())
	}
}

func TestManager_LoadOnce(t *testing.T) {
	prefs := test.NewTempApp(t).Preferences()
	m := NewManager(prefs, nil)
	m.Load()
	m.SetModel("edited")

	prefs.SetString(KeyModel, "changed-behind-our-back")
	if got := m.Load().Model; got != "edited" {
		t.Fatalf("second Load must not reread prefs, got %q", got)
	}
}

func TestManager_Validation(t *testing.T) {
	m := NewManager(nil, nil)
	if err := m.SetProvider("nope"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if err := m.SetPrompt(&Prompt{Type: "summarize"}); err == nil {
		t.Fatalf("expected invalid prompt type error")
	}
	if err := m.SetPrompt(nil); err != nil {
		t.Fatalf("clearing prompt: %v", err)
	}
	if _, err := ParseShortcutWindowType("Popup"); err != nil {
		t.Fatalf("ParseShortcutWindowType: %v", err)
	}
}
