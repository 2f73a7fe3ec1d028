// Package cleanup runs the shutdown hooks of long-lived components such as
// the bridge server and the selection watcher.
package cleanup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oukeidos/transpop/internal/logger"
)

type hook struct {
	name string
	fn   func() error
}

var (
	mu    sync.Mutex
	hooks []hook
)

// Register adds a named hook executed in LIFO order.
func Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook{name: name, fn: fn})
	mu.Unlock()
}

// Pending returns the number of registered hooks.
func Pending() int {
	mu.Lock()
	defer mu.Unlock()
	return len(hooks)
}

// RunAll executes and clears every hook, returning the joined failures.
func RunAll() error {
	mu.Lock()
	local := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(local) - 1; i >= 0; i-- {
		h := local[i]
		if err := h.fn(); err != nil {
			logger.Warn("Cleanup hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
}
