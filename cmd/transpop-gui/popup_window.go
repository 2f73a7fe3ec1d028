package main

import (
	"context"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/transpop/internal/coordinator"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/langdetect"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/relay"
	"github.com/oukeidos/transpop/internal/selection"
	"github.com/oukeidos/transpop/internal/state"
	"github.com/oukeidos/transpop/internal/window"
)

const copiedFeedback = 2 * time.Second

// popupView is the compact window the shortcut opens: it translates the
// captured text and corrects it side by side.
type popupView struct {
	g     *gui
	win   fyne.Window
	store *state.Store
	coord *coordinator.Coordinator
	relay *relay.Relay
	unsub func()

	translated     *widget.Label
	corrected      *widget.Label
	copyTranslated *widget.Button
	copyCorrected  *widget.Button
	progress       *widget.ProgressBarInfinite
}

// slotText renders one popup slot.
func slotText(snap state.Snapshot, m state.Mode) string {
	text, ok := snap.Result(m)
	if !ok {
		return ""
	}
	if text == state.PendingText {
		return "…"
	}
	return text
}

func newPopupView(ctx context.Context, g *gui) (*popupView, error) {
	v := &popupView{g: g, store: state.NewStore()}
	v.win = g.app.NewWindow("transpop")
	v.win.Resize(fyne.NewSize(420, 260))
	v.win.SetCloseIntercept(v.win.Hide)

	v.coord = coordinator.New(v.store, g.invoker,
		coordinator.WithSettings(g.settings),
		coordinator.WithDetector(langdetect.New(langdetect.DefaultMinConfidence)),
		coordinator.WithPolicy(g.cfg.Policy()),
	)
	bus := events.NewBus()
	v.relay = relay.New(g.shell, bus, events.ShortcutPopupTranslate)
	if err := v.coord.Attach(ctx, bus, events.ShortcutPopupTranslate, coordinator.FlowPopup); err != nil {
		return nil, err
	}
	if err := v.relay.Start(); err != nil {
		v.coord.Close()
		return nil, err
	}

	v.translated = widget.NewLabel("")
	v.translated.Wrapping = fyne.TextWrapWord
	v.translated.Selectable = true
	v.corrected = widget.NewLabel("")
	v.corrected.Wrapping = fyne.TextWrapWord
	v.corrected.Selectable = true
	v.progress = widget.NewProgressBarInfinite()
	v.progress.Hide()

	v.copyTranslated = v.copyButton(state.Translate)
	v.copyCorrected = v.copyButton(state.Correct)
	openMain := widget.NewButtonWithIcon("", theme.SettingsIcon(), v.openMain)

	body := container.NewVBox(
		sectionHeader(state.Translate, v.copyTranslated),
		v.translated,
		widget.NewSeparator(),
		sectionHeader(state.Correct, v.copyCorrected),
		v.corrected,
	)
	top := container.NewBorder(nil, nil, nil, openMain, v.progress)
	v.win.SetContent(container.NewBorder(top, nil, nil, nil, container.NewVScroll(body)))
	onEscape(v.win.Canvas(), v.win.Hide)

	v.unsub = v.store.Subscribe(func(snap state.Snapshot) {
		g.safeDo("popup.render", func() { v.render(snap) })
	})
	return v, nil
}

func sectionHeader(m state.Mode, copyBtn *widget.Button) fyne.CanvasObject {
	title := widget.NewLabelWithStyle(m.Title(), fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	return container.NewBorder(nil, nil, nil, copyBtn, title)
}

// copyButton copies slot m and briefly shows a check mark.
func (v *popupView) copyButton(m state.Mode) *widget.Button {
	var btn *widget.Button
	btn = widget.NewButtonWithIcon("", theme.ContentCopyIcon(), func() {
		text, ok := copyableText(v.store.Snapshot(), m)
		if !ok {
			return
		}
		if err := selection.WriteClipboard(text); err != nil {
			logger.Warn("Copy to clipboard failed", "mode", m, "error", err)
			return
		}
		btn.SetIcon(theme.ConfirmIcon())
		time.AfterFunc(copiedFeedback, func() {
			v.g.safeDo("popup.copied", func() { btn.SetIcon(theme.ContentCopyIcon()) })
		})
	})
	btn.Importance = widget.LowImportance
	btn.Disable()
	return btn
}

// openMain brings the main window forward.
func (v *popupView) openMain() {
	if err := window.Raise(v.g.windows, window.Main); err != nil {
		logger.Warn("Failed to open main window", "error", err)
	}
}

func (v *popupView) render(snap state.Snapshot) {
	v.translated.SetText(slotText(snap, state.Translate))
	v.corrected.SetText(slotText(snap, state.Correct))
	setEnabled(v.copyTranslated, snap, state.Translate)
	setEnabled(v.copyCorrected, snap, state.Correct)
	if snap.Translating {
		v.progress.Show()
		v.progress.Start()
	} else {
		v.progress.Stop()
		v.progress.Hide()
	}
}

func (v *popupView) close() {
	v.relay.Stop()
	v.coord.Close()
	if v.unsub != nil {
		v.unsub()
	}
}
