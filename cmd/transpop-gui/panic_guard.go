package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/oukeidos/transpop/internal/safe"
)

// safeDo runs fn on the fyne main goroutine behind a panic guard.
func safeDo(scope string, fn func()) {
	safe.Do(scope+".dispatch", func() {
		fyne.Do(func() {
			safe.Do(scope, fn)
		})
	})
}

func (g *gui) safeGo(scope string, fn func()) {
	if g == nil {
		safe.Go(scope, fn)
		return
	}
	safe.GoWith(scope, func(r any) {
		g.handleRecoveredPanic(scope, r)
	}, fn)
}

func (g *gui) safeDo(scope string, fn func()) {
	if g == nil {
		safeDo(scope, fn)
		return
	}
	safe.Guard(scope+".dispatch", func(r any) {
		g.handleRecoveredPanic(scope+".dispatch", r)
	}, func() {
		fyne.Do(func() {
			safe.Guard(scope, func(r any) {
				g.handleRecoveredPanic(scope, r)
			}, fn)
		})
	})
}

func (g *gui) handleRecoveredPanic(scope string, _ any) {
	if g == nil || fyne.CurrentApp() == nil {
		return
	}
	g.panicNoticeOnce.Do(func() {
		g.safeDo("panic.notice", func() {
			if g.main == nil || g.main.win == nil {
				return
			}
			dialog.ShowInformation(
				"Unexpected Error",
				"An internal error occurred in "+scope+". The current request was dropped. If this repeats, restart the app.",
				g.main.win,
			)
		})
	})
}
