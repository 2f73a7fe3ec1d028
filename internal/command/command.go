// Package command is the request/response interface between a window and
// the backend that performs language-model calls.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Command names as exposed on the wire.
const (
	Translate    = "translate"
	Correct      = "correct"
	Refine       = "refine"
	SaveSettings = "save_settings"
)

var ErrUnknownCommand = errors.New("unknown command")

// Request is the argument bundle of translate, correct and refine.
// Optional fields are sent as null when unset; the backend falls back to
// its defaults.
type Request struct {
	Provider   *string `json:"provider"`
	Model      *string `json:"model"`
	Text       string  `json:"text"`
	SourceLang *string `json:"sourceLang"`
	TargetLang *string `json:"targetLang"`
	Prompt     *string `json:"prompt"`
}

// Prompt is a user supplied instruction that replaces the default one for
// the mode named by Type.
type Prompt struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// SaveRequest is the argument bundle of save_settings.
type SaveRequest struct {
	APIKey             *string `json:"apiKey"`
	ShortcutWindowType *string `json:"shortcutWindowType"`
	Provider           *string `json:"provider"`
	Model              *string `json:"model"`
	Prompt             *Prompt `json:"prompt"`
}

// Invoker executes commands.
type Invoker interface {
	Invoke(ctx context.Context, name string, req Request) (string, error)
	SaveSettings(ctx context.Context, req SaveRequest) error
}

// IsTextCommand reports whether name takes a Request and returns a string.
func IsTextCommand(name string) bool {
	switch name {
	case Translate, Correct, Refine:
		return true
	}
	return false
}

// Opt returns nil for a blank string, else a pointer to the trimmed value.
func Opt(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences p, treating nil as empty.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Validate checks the fields every text command needs.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text is empty")
	}
	return nil
}
