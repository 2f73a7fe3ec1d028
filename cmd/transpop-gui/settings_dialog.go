package main

import (
	"context"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/transpop/internal/auth"
	"github.com/oukeidos/transpop/internal/metadata"
	"github.com/oukeidos/transpop/internal/settings"
	"github.com/oukeidos/transpop/internal/state"
	"github.com/oukeidos/transpop/internal/version"
)

const noPrompt = "Default"

// settingsForm is what the dialog collects. It is applied to the manager
// only when the user saves.
type settingsForm struct {
	provider      string
	model         string
	apiKey        string
	window        string
	selectionIcon bool
	promptMode    string
	promptText    string
}

func formFrom(s settings.AppSettings) settingsForm {
	f := settingsForm{
		provider:      s.Provider.Name,
		model:         s.Model,
		apiKey:        s.APIKey,
		window:        string(s.ShortcutWindowType),
		selectionIcon: s.DoubleClickEnabled,
		promptMode:    noPrompt,
	}
	if s.Prompt != nil {
		f.promptMode = s.Prompt.Type
		f.promptText = s.Prompt.Value
	}
	return f
}

// apply validates f and writes it into m.
func (f settingsForm) apply(m *settings.Manager) error {
	if err := m.SetProvider(f.provider); err != nil {
		return err
	}
	if model := strings.TrimSpace(f.model); model != "" {
		m.SetModel(model)
	}
	t, err := settings.ParseShortcutWindowType(f.window)
	if err != nil {
		return err
	}
	m.SetShortcutWindowType(t)
	m.SetDoubleClickEnabled(f.selectionIcon)
	m.SetAPIKey(strings.TrimSpace(f.apiKey))

	if f.promptMode == noPrompt || strings.TrimSpace(f.promptText) == "" {
		return m.SetPrompt(nil)
	}
	mode, err := state.ParseMode(f.promptMode)
	if err != nil {
		return err
	}
	return m.SetPrompt(&settings.Prompt{Type: string(mode), Value: f.promptText})
}

func keyStatusText(provider string) string {
	p, ok := metadata.LookupProvider(provider)
	if !ok || !p.NeedsKey {
		return "Not needed"
	}
	if auth.GetStatus(p.Name) {
		return "Saved in keychain"
	}
	return "Not saved"
}

func showSettingsDialog(g *gui, parent fyne.Window) {
	form := formFrom(g.settings.Load())

	modelEntry := widget.NewSelectEntry(nil)
	modelEntry.SetText(form.model)
	keyEntry := widget.NewPasswordEntry()
	keyEntry.SetPlaceHolder("Enter new key")
	keyEntry.SetText(form.apiKey)
	keyStatus := widget.NewLabel(keyStatusText(form.provider))

	syncProvider := func(name string) {
		p, ok := metadata.LookupProvider(name)
		if !ok {
			return
		}
		modelEntry.SetOptions(p.Models)
		if name != form.provider {
			modelEntry.SetText(metadata.ResolveModel(p.Name, ""))
			keyEntry.SetText("")
		}
		if p.NeedsKey {
			keyEntry.Enable()
		} else {
			keyEntry.Disable()
		}
		keyStatus.SetText(keyStatusText(name))
	}

	providerSelect := widget.NewSelect(metadata.ProviderNames(), func(name string) {
		syncProvider(name)
		form.provider = name
	})
	providerSelect.SetSelected(form.provider)
	syncProvider(form.provider)

	windowRadio := widget.NewRadioGroup([]string{string(settings.WindowPopup), string(settings.WindowMain)}, nil)
	windowRadio.Horizontal = true
	windowRadio.Required = true
	windowRadio.SetSelected(form.window)

	iconCheck := widget.NewCheck("Show an icon after selecting text", nil)
	iconCheck.SetChecked(form.selectionIcon)

	promptModes := append([]string{noPrompt}, modeNames()...)
	promptSelect := widget.NewSelect(promptModes, nil)
	promptSelect.SetSelected(form.promptMode)
	promptEntry := widget.NewMultiLineEntry()
	promptEntry.SetPlaceHolder("Custom instruction; {original_lang} and {target_lang} are filled in")
	promptEntry.Wrapping = fyne.TextWrapWord
	promptEntry.SetMinRowsVisible(4)
	promptEntry.SetText(form.promptText)

	content := container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Provider", providerSelect),
			widget.NewFormItem("Model", modelEntry),
			widget.NewFormItem("API key", container.NewBorder(nil, nil, nil, keyStatus, keyEntry)),
			widget.NewFormItem("Shortcut opens", windowRadio),
			widget.NewFormItem("Selection", iconCheck),
			widget.NewFormItem("Prompt for", promptSelect),
		),
		promptEntry,
		widget.NewSeparator(),
		widget.NewLabel(fmt.Sprintf("transpop %s (commit %s)", version.Version, version.Commit)),
	)

	d := dialog.NewCustomConfirm("Settings", "Save", "Cancel", content, func(ok bool) {
		if !ok {
			return
		}
		edited := settingsForm{
			provider:      providerSelect.Selected,
			model:         modelEntry.Text,
			apiKey:        keyEntry.Text,
			window:        windowRadio.Selected,
			selectionIcon: iconCheck.Checked,
			promptMode:    promptSelect.Selected,
			promptText:    promptEntry.Text,
		}
		if err := edited.apply(g.settings); err != nil {
			dialog.ShowError(err, parent)
			return
		}
		g.safeGo("settings.save", func() {
			if !g.settings.Save(context.Background()) {
				g.safeDo("settings.save.failed", func() {
					dialog.ShowError(fmt.Errorf("settings could not be saved; see the log for details"), parent)
				})
			}
		})
	}, parent)
	d.Resize(fyne.NewSize(520, 480))
	d.Show()
}

func modeNames() []string {
	out := make([]string, 0, len(state.Modes()))
	for _, m := range state.Modes() {
		out = append(out, string(m))
	}
	return out
}
