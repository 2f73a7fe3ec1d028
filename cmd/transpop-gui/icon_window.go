package main

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/selection"
)

// iconView is the small floating button shown after a new selection.
// Clicking it sends the selection to the popup.
type iconView struct {
	g     *gui
	win   fyne.Window
	btn   *widget.Button
	unsub events.Unsubscribe

	mu   sync.Mutex
	last string
}

func newIconView(g *gui) (*iconView, error) {
	v := &iconView{g: g}
	v.win = g.app.NewWindow("transpop")
	v.win.SetFixedSize(true)
	v.win.SetPadded(false)
	v.win.SetCloseIntercept(v.win.Hide)

	v.btn = widget.NewButtonWithIcon("", theme.SearchIcon(), v.clicked)
	v.win.SetContent(v.btn)
	v.win.Resize(fyne.NewSize(40, 40))

	unsub, err := g.shell.Listen(events.SetSelectedText, v.remember)
	if err != nil {
		return nil, err
	}
	v.unsub = unsub
	return v, nil
}

func (v *iconView) remember(payload any) {
	text, ok := payload.(string)
	if !ok {
		logger.Warn("Dropping selection with unexpected payload", "payload_type", fmt.Sprintf("%T", payload))
		return
	}
	v.mu.Lock()
	v.last = text
	v.mu.Unlock()
	v.g.safeDo("icon.tooltip", func() {
		v.win.SetTitle("Translate: " + selection.Preview(text, 40))
	})
}

func (v *iconView) selection() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

func (v *iconView) clicked() {
	text := v.selection()
	if strings.TrimSpace(text) == "" {
		v.win.Hide()
		return
	}
	v.g.safeGo("icon.click", func() {
		if err := v.g.shell.Emit(events.IconClicked, text); err != nil {
			logger.Warn("Icon click not delivered", "error", err)
		}
	})
}

func (v *iconView) close() {
	if v.unsub != nil {
		v.unsub()
	}
}
