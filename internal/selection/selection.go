// Package selection watches the clipboard for newly copied text and
// publishes it as the current selection.
package selection

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rivo/uniseg"

	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
)

const DefaultInterval = 400 * time.Millisecond

// Reader returns the current clipboard text.
type Reader func() (string, error)

// ReadClipboard reads the system clipboard.
func ReadClipboard() (string, error) {
	return clipboard.ReadAll()
}

// WriteClipboard replaces the system clipboard text.
func WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// Watcher emits events.SetSelectedText whenever the clipboard changes to
// non-blank text while enabled reports true.
type Watcher struct {
	read     Reader
	emit     events.Emitter
	enabled  func() bool
	interval time.Duration

	mu     sync.Mutex
	primed bool
	last   string
}

func NewWatcher(read Reader, emit events.Emitter, enabled func() bool, interval time.Duration) *Watcher {
	if read == nil {
		read = ReadClipboard
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{read: read, emit: emit, enabled: enabled, interval: interval}
}

// Poll reads the clipboard once and reports whether an event was emitted.
// The first successful read only records a baseline.
func (w *Watcher) Poll() bool {
	text, err := w.read()
	if err != nil {
		logger.Debug("Clipboard read failed", "error", err)
		return false
	}

	w.mu.Lock()
	changed := w.primed && text != w.last
	w.primed = true
	w.last = text
	w.mu.Unlock()

	if !changed || strings.TrimSpace(text) == "" || !w.enabled() {
		return false
	}
	logger.Debug("Selection captured", "chars", uniseg.GraphemeClusterCount(text))
	if err := w.emit.Emit(events.SetSelectedText, text); err != nil {
		logger.Warn("Failed to publish selection", "error", err)
		return false
	}
	return true
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	w.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Poll()
		}
	}
}

// Preview shortens text to at most max grapheme clusters on one line,
// appending an ellipsis when cut.
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 {
		return ""
	}
	if uniseg.GraphemeClusterCount(text) <= max {
		return text
	}
	var sb strings.Builder
	g := uniseg.NewGraphemes(text)
	for n := 0; n < max-1 && g.Next(); n++ {
		sb.WriteString(g.Str())
	}
	sb.WriteString("…")
	return sb.String()
}
