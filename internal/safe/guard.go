// Package safe runs callbacks and goroutines behind a panic guard.
package safe

import (
	"fmt"

	"github.com/oukeidos/transpop/internal/logger"
)

// Guard runs fn and recovers a panic, logging it under scope.
// onPanic, when set, receives the recovered value.
func Guard(scope string, onPanic func(any), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic", "scope", scope, "panic", fmt.Sprint(r))
			if onPanic != nil {
				onPanic(r)
			}
		}
	}()
	fn()
}

// Do is Guard without a panic callback.
func Do(scope string, fn func()) {
	Guard(scope, nil, fn)
}

// Go runs fn on a new goroutine behind the guard.
func Go(scope string, fn func()) {
	go Guard(scope, nil, fn)
}

// GoWith is Go with a panic callback.
func GoWith(scope string, onPanic func(any), fn func()) {
	go Guard(scope, onPanic, fn)
}
