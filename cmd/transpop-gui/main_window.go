package main

import (
	"context"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/transpop/internal/coordinator"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/language"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/relay"
	"github.com/oukeidos/transpop/internal/selection"
	"github.com/oukeidos/transpop/internal/state"
)

// mainView is the full translator window: language pair, input, mode tabs
// and the result of the selected mode.
type mainView struct {
	g     *gui
	ctx   context.Context
	win   fyne.Window
	store *state.Store
	coord *coordinator.Coordinator
	relay *relay.Relay
	unsub func()

	source   *widget.Select
	target   *widget.Select
	input    *widget.Entry
	modes    *widget.RadioGroup
	result   *widget.Label
	progress *widget.ProgressBarInfinite
	submit   *widget.Button
	cancel   *widget.Button
	copyBtn  *widget.Button

	// rendering suppresses widget callbacks while state is pushed into them.
	rendering bool
}

func languageLabels() []string {
	langs := language.Supported()
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		out = append(out, l.Label)
	}
	return out
}

func languageByLabel(label string) (language.Descriptor, bool) {
	for _, l := range language.Supported() {
		if l.Label == label {
			return l, true
		}
	}
	return language.Descriptor{}, false
}

func modeTitles() []string {
	out := make([]string, 0, len(state.Modes()))
	for _, m := range state.Modes() {
		out = append(out, m.Title())
	}
	return out
}

func modeByTitle(title string) (state.Mode, bool) {
	for _, m := range state.Modes() {
		if m.Title() == title {
			return m, true
		}
	}
	return "", false
}

// resultText is what the result area shows for snap.
func resultText(snap state.Snapshot) string {
	text, ok := snap.Result(snap.Mode)
	switch {
	case !ok:
		return ""
	case text == state.PendingText:
		return snap.Mode.Title() + " in progress…"
	}
	return text
}

// copyableText returns slot m when it holds a finished, non-blank result.
func copyableText(snap state.Snapshot, m state.Mode) (string, bool) {
	text, ok := snap.Result(m)
	if !ok || text == state.PendingText || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func setEnabled(btn *widget.Button, snap state.Snapshot, m state.Mode) {
	if _, ok := copyableText(snap, m); ok {
		btn.Enable()
	} else {
		btn.Disable()
	}
}

func newMainView(ctx context.Context, g *gui) (*mainView, error) {
	v := &mainView{g: g, ctx: ctx, store: state.NewStore()}
	v.win = g.app.NewWindow("transpop")
	v.win.SetMaster()
	v.win.Resize(fyne.NewSize(640, 520))

	v.coord = coordinator.New(v.store, g.invoker,
		coordinator.WithSettings(g.settings),
		coordinator.WithPolicy(g.cfg.Policy()),
	)
	bus := events.NewBus()
	v.relay = relay.New(g.shell, bus, events.ShortcutQuickTranslate)
	if err := v.coord.Attach(ctx, bus, events.ShortcutQuickTranslate, coordinator.FlowQuick); err != nil {
		return nil, err
	}
	if err := v.relay.Start(); err != nil {
		v.coord.Close()
		return nil, err
	}

	v.build()
	v.unsub = v.store.Subscribe(func(snap state.Snapshot) {
		g.safeDo("main.render", func() { v.render(snap) })
	})
	v.render(v.store.Snapshot())
	return v, nil
}

func (v *mainView) build() {
	labels := languageLabels()
	v.source = widget.NewSelect(labels, func(label string) { v.setLanguage(label, true) })
	v.target = widget.NewSelect(labels, func(label string) { v.setLanguage(label, false) })
	swap := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		v.store.SwapLanguages()
	})

	v.input = widget.NewMultiLineEntry()
	v.input.SetPlaceHolder("Type or paste text, then press Ctrl+Enter")
	v.input.Wrapping = fyne.TextWrapWord
	v.input.OnChanged = func(text string) {
		if !v.rendering {
			v.store.SetInput(text)
		}
	}

	v.modes = widget.NewRadioGroup(modeTitles(), func(title string) {
		if v.rendering {
			return
		}
		if m, ok := modeByTitle(title); ok {
			v.coord.SwitchMode(v.ctx, m)
		}
	})
	v.modes.Horizontal = true
	v.modes.Required = true

	v.result = widget.NewLabel("")
	v.result.Wrapping = fyne.TextWrapWord
	v.result.Selectable = true
	v.progress = widget.NewProgressBarInfinite()
	v.progress.Hide()

	v.submit = widget.NewButtonWithIcon("Run", theme.MediaPlayIcon(), func() {
		v.coord.Submit(v.ctx, coordinator.FromButton)
	})
	v.submit.Importance = widget.HighImportance
	v.cancel = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), v.coord.Cancel)
	v.copyBtn = widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), v.copyResult)
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(v.g, v.win)
	})

	v.win.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyReturn, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		v.coord.KeyboardSubmit(v.ctx)
	})
	onEscape(v.win.Canvas(), v.win.Hide)

	top := container.NewBorder(nil, nil, nil, settingsBtn,
		container.NewGridWithColumns(3, v.source, container.NewCenter(swap), v.target))
	actions := container.NewHBox(v.modes, widget.NewSeparator(), v.submit, v.cancel, v.copyBtn)
	output := container.NewBorder(v.progress, nil, nil, nil, container.NewVScroll(v.result))
	split := container.NewVSplit(v.input, output)
	split.Offset = 0.45

	v.win.SetContent(container.NewBorder(container.NewVBox(top, actions), nil, nil, nil, split))
}

func (v *mainView) setLanguage(label string, isSource bool) {
	if v.rendering {
		return
	}
	d, ok := languageByLabel(label)
	if !ok {
		return
	}
	cfg := v.store.Snapshot().Language
	if isSource {
		cfg.Source = d
	} else {
		cfg.Target = d
	}
	v.store.SetLanguage(cfg)
}

func (v *mainView) render(snap state.Snapshot) {
	v.rendering = true
	defer func() { v.rendering = false }()

	v.source.SetSelected(snap.Language.Source.Label)
	v.target.SetSelected(snap.Language.Target.Label)
	if v.input.Text != snap.Input {
		v.input.SetText(snap.Input)
	}
	v.modes.SetSelected(snap.Mode.Title())
	v.result.SetText(resultText(snap))

	if snap.Translating {
		v.progress.Show()
		v.progress.Start()
		v.cancel.Enable()
	} else {
		v.progress.Stop()
		v.progress.Hide()
		v.cancel.Disable()
	}
	setEnabled(v.copyBtn, snap, snap.Mode)
}

func (v *mainView) copyResult() {
	snap := v.store.Snapshot()
	text, ok := copyableText(snap, snap.Mode)
	if !ok {
		return
	}
	if err := selection.WriteClipboard(text); err != nil {
		logger.Warn("Copy to clipboard failed", "error", err)
		dialog.ShowError(err, v.win)
	}
}

func (v *mainView) close() {
	v.relay.Stop()
	v.coord.Close()
	if v.unsub != nil {
		v.unsub()
	}
}
