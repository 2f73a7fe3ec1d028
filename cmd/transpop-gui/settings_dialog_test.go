package main

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/transpop/internal/settings"
)

func newTestManager(t *testing.T) *settings.Manager {
	t.Helper()
	a := test.NewTempApp(t)
	m := settings.NewManager(a.Preferences(), nil)
	m.Load()
	return m
}

func TestSettingsForm_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	f := formFrom(m.Current())
	assert.Equal(t, "ollama", f.provider)
	assert.Equal(t, noPrompt, f.promptMode)

	f.provider = "openai"
	f.model = "gpt-4.1-mini"
	f.apiKey = "  sk-test  "
	f.window = "main"
	f.selectionIcon = true
	f.promptMode = "correct"
	f.promptText = "Fix grammar only"
	require.NoError(t, f.apply(m))

	got := m.Current()
	assert.Equal(t, "openai", got.Provider.Name)
	assert.Equal(t, "gpt-4.1-mini", got.Model)
	assert.Equal(t, "sk-test", got.APIKey)
	assert.Equal(t, settings.WindowMain, got.ShortcutWindowType)
	assert.True(t, got.DoubleClickEnabled)
	require.NotNil(t, got.Prompt)
	assert.Equal(t, "correct", got.Prompt.Type)

	back := formFrom(got)
	assert.Equal(t, "correct", back.promptMode)
	assert.Equal(t, "Fix grammar only", back.promptText)
}

func TestSettingsForm_ClearPrompt(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetPrompt(&settings.Prompt{Type: "translate", Value: "x"}))

	f := formFrom(m.Current())
	f.promptMode = noPrompt
	require.NoError(t, f.apply(m))
	assert.Nil(t, m.Current().Prompt)

	f = formFrom(m.Current())
	f.promptMode = "refine"
	f.promptText = "   "
	require.NoError(t, f.apply(m))
	assert.Nil(t, m.Current().Prompt)
}

func TestSettingsForm_Invalid(t *testing.T) {
	m := newTestManager(t)

	f := formFrom(m.Current())
	f.provider = "nope"
	assert.Error(t, f.apply(m))

	f = formFrom(m.Current())
	f.window = "sidebar"
	assert.Error(t, f.apply(m))

	f = formFrom(m.Current())
	f.promptMode = "summarize"
	f.promptText = "x"
	assert.Error(t, f.apply(m))
}

func TestKeyStatusText(t *testing.T) {
	assert.Equal(t, "Not needed", keyStatusText("ollama"))
	assert.Equal(t, "Not needed", keyStatusText("nope"))
}
