package main

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/oukeidos/transpop/internal/window"
)

// fyneWindows maps window labels to fyne windows.
type fyneWindows struct {
	mu   sync.Mutex
	wins map[string]fyne.Window
}

var _ window.Manager = (*fyneWindows)(nil)

func newFyneWindows() *fyneWindows {
	return &fyneWindows{wins: make(map[string]fyne.Window)}
}

func (f *fyneWindows) register(label string, w fyne.Window) {
	f.mu.Lock()
	f.wins[label] = w
	f.mu.Unlock()
}

func (f *fyneWindows) get(label string) (fyne.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wins[label]
	if !ok {
		return nil, fmt.Errorf("no window labelled %q", label)
	}
	return w, nil
}

func (f *fyneWindows) Show(label string) error {
	w, err := f.get(label)
	if err != nil {
		return err
	}
	safeDo("window.show", w.Show)
	return nil
}

func (f *fyneWindows) Hide(label string) error {
	w, err := f.get(label)
	if err != nil {
		return err
	}
	safeDo("window.hide", w.Hide)
	return nil
}

func (f *fyneWindows) Focus(label string) error {
	w, err := f.get(label)
	if err != nil {
		return err
	}
	safeDo("window.focus", w.RequestFocus)
	return nil
}

// onEscape runs fn when Escape reaches c unhandled by a focused widget.
func onEscape(c fyne.Canvas, fn func()) {
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			fn()
		}
	})
}
