// Package coordinator drives the result state of one window: it marks a
// result slot pending, invokes the backend command and writes the answer or
// a failure text back.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/language"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/safe"
	"github.com/oukeidos/transpop/internal/settings"
	"github.com/oukeidos/transpop/internal/state"
)

// Failure texts written into a slot when its command fails.
const (
	FailedTranslation = "Error occurred during translation"
	FailedCorrection  = "Error occurred during correction"
	FailedRefinement  = "Error occurred during refinement"
)

// Language hints sent by the popup when the source language is unknown.
const (
	DetectSourceHint   = "<please detect source language (supported: English, Vietnamese)>"
	OppositeTargetHint = "<opposite with source language (supported: English, Vietnamese)>"
)

// FailureText returns the failure text for m.
func FailureText(m state.Mode) string {
	switch m {
	case state.Correct:
		return FailedCorrection
	case state.Refine:
		return FailedRefinement
	default:
		return FailedTranslation
	}
}

// Policy decides what happens when requests for the same mode overlap.
type Policy int

const (
	// LastWriterWins lets every response land; the slot shows whichever
	// finished last.
	LastWriterWins Policy = iota
	// DiscardStale drops a response when a newer request for the same mode
	// was started after it.
	DiscardStale
	// IgnoreWhileBusy refuses a new request while one for the same mode is
	// outstanding.
	IgnoreWhileBusy
)

func (p Policy) String() string {
	switch p {
	case DiscardStale:
		return "discard-stale"
	case IgnoreWhileBusy:
		return "ignore-while-busy"
	default:
		return "last-writer-wins"
	}
}

// ParsePolicy accepts the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-writer-wins":
		return LastWriterWins, nil
	case "discard-stale":
		return DiscardStale, nil
	case "ignore-while-busy":
		return IgnoreWhileBusy, nil
	}
	return 0, fmt.Errorf("unknown request policy %q", s)
}

// Trigger names what started a request. It is only logged.
type Trigger string

const (
	FromShortcut   Trigger = "shortcut"
	FromButton     Trigger = "button"
	FromModeSwitch Trigger = "mode_switch"
	FromKeyboard   Trigger = "keyboard"
	FromCLI        Trigger = "cli"
)

// SettingsSource supplies provider, model and prompt for each request.
// settings.Manager implements it.
type SettingsSource interface {
	Current() settings.AppSettings
}

// Detector guesses the language of a text. langdetect.Detector implements it.
type Detector interface {
	Detect(text string) (language.Descriptor, bool)
}

type Option func(*Coordinator)

func WithPolicy(p Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

func WithSettings(src SettingsSource) Option {
	return func(c *Coordinator) { c.settings = src }
}

func WithDetector(d Detector) Option {
	return func(c *Coordinator) { c.detector = d }
}

// Coordinator owns the request lifecycle for one window. It is active from
// New until Close; afterwards nothing it started writes to the store.
type Coordinator struct {
	store    *state.Store
	invoker  command.Invoker
	settings SettingsSource
	detector Detector
	policy   Policy

	mu          sync.Mutex
	active      bool
	outstanding int
	seq         map[state.Mode]uint64
	busy        map[state.Mode]int
	subs        events.Group
	wg          sync.WaitGroup
}

func New(store *state.Store, invoker command.Invoker, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		invoker: invoker,
		active:  true,
		seq:     make(map[state.Mode]uint64),
		busy:    make(map[state.Mode]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Store() *state.Store { return c.store }

// Close stops state writes from late events and in-flight requests and
// releases every subscription made through Attach.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	c.subs.Close()
}

// Wait blocks until every request goroutine has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Active reports whether Close has not been called.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Cancel turns the translating flag off. Requests already in flight are not
// aborted and their results still land.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	notify := c.store.Stage(func(s *state.Snapshot) { s.Translating = false })
	c.mu.Unlock()
	notify()
}

type ticket struct {
	id      string
	trigger Trigger
	modes   []state.Mode
	seqs    []uint64
	done    bool
}

// begin marks the ticket's slots pending and the window translating.
// It returns nil when the coordinator is closed or the policy refuses.
// Store writes happen under c.mu so they follow the coordinator's decisions;
// listeners are notified after c.mu is released.
func (c *Coordinator) begin(trigger Trigger, modes []state.Mode, replace bool) *ticket {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	if c.policy == IgnoreWhileBusy {
		for _, m := range modes {
			if c.busy[m] > 0 {
				c.mu.Unlock()
				logger.Debug("Request ignored while busy", "mode", m, "trigger", trigger)
				return nil
			}
		}
	}

	t := &ticket{id: uuid.NewString(), trigger: trigger, modes: modes}
	for _, m := range modes {
		c.seq[m]++
		c.busy[m]++
		t.seqs = append(t.seqs, c.seq[m])
	}
	c.outstanding++

	notify := c.store.Stage(func(s *state.Snapshot) {
		if replace {
			s.Results = state.ResultTexts{}
		}
		for _, m := range modes {
			s.Results[m] = state.PendingText
		}
		s.Translating = true
	})
	c.mu.Unlock()
	notify()
	return t
}

func (c *Coordinator) stale(t *ticket) bool {
	if c.policy != DiscardStale {
		return false
	}
	for i, m := range t.modes {
		if c.seq[m] != t.seqs[i] {
			return true
		}
	}
	return false
}

// commit writes results for t. A final commit retires the ticket and clears
// the translating flag when nothing else is outstanding.
func (c *Coordinator) commit(t *ticket, results state.ResultTexts, final bool) {
	if notify := c.stageCommit(t, results, final); notify != nil {
		notify()
	}
}

func (c *Coordinator) stageCommit(t *ticket, results state.ResultTexts, final bool) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.done {
		return nil
	}
	if final {
		t.done = true
		c.outstanding--
		for _, m := range t.modes {
			c.busy[m]--
		}
	}
	if !c.active {
		logger.Debug("Dropped result after close", "request_id", t.id)
		return nil
	}
	drop := c.stale(t)
	if drop {
		logger.Debug("Dropped stale result", "request_id", t.id, "modes", t.modes)
	}
	idle := final && c.outstanding == 0
	if drop && !idle {
		return nil
	}
	return c.store.Stage(func(s *state.Snapshot) {
		if !drop {
			for m, text := range results {
				s.Results[m] = text
			}
		}
		if idle {
			s.Translating = false
		}
	})
}

func (c *Coordinator) failAll(t *ticket) {
	results := make(state.ResultTexts, len(t.modes))
	for _, m := range t.modes {
		results[m] = FailureText(m)
	}
	c.commit(t, results, true)
}

// spawn runs fn on a guarded goroutine; a panic fails the ticket.
func (c *Coordinator) spawn(t *ticket, fn func()) <-chan struct{} {
	done := make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		safe.Guard("coordinator."+string(t.trigger), func(any) {
			c.failAll(t)
		}, fn)
	}()
	return done
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (c *Coordinator) currentSettings() settings.AppSettings {
	if c.settings == nil {
		return settings.Defaults()
	}
	return c.settings.Current()
}

// buildRequest bundles text with the current provider, model, prompt and
// the given language labels.
func (c *Coordinator) buildRequest(mode state.Mode, text, source, target string) command.Request {
	s := c.currentSettings()
	req := command.Request{
		Provider:   command.Opt(s.Provider.Name),
		Model:      command.Opt(s.Model),
		Text:       text,
		SourceLang: command.Opt(source),
		TargetLang: command.Opt(target),
	}
	if p, ok := s.PromptFor(string(mode)); ok {
		req.Prompt = &p
	}
	return req
}

func (c *Coordinator) call(ctx context.Context, t *ticket, mode state.Mode, req command.Request) (string, error) {
	logger.Debug("Invoking command",
		"command", mode,
		"request_id", t.id,
		"trigger", t.trigger,
		"provider", command.Value(req.Provider),
		"model", command.Value(req.Model),
		"chars", uniseg.GraphemeClusterCount(req.Text),
	)
	res, err := c.invoker.Invoke(ctx, string(mode), req)
	if err != nil {
		logger.Warn("Command failed",
			"command", mode,
			"request_id", t.id,
			"error", apperrors.PublicMessage(err),
		)
		return "", err
	}
	return res, nil
}

// Request starts mode on text in the background. The pending state is
// visible before Request returns. The channel closes when the request has
// settled, or at once when it was not started.
func (c *Coordinator) Request(ctx context.Context, mode state.Mode, text string, trigger Trigger) <-chan struct{} {
	t, req := c.prepare(mode, text, trigger)
	if t == nil {
		return closed()
	}
	return c.spawn(t, func() { c.finish(ctx, t, mode, req) })
}

// Run is Request on the caller's goroutine. It returns the text left in the
// slot and the command error, if any.
func (c *Coordinator) Run(ctx context.Context, mode state.Mode, text string, trigger Trigger) (string, error) {
	t, req := c.prepare(mode, text, trigger)
	if t == nil {
		return "", fmt.Errorf("request for %s not started", mode)
	}
	var (
		out string
		err error
	)
	safe.Guard("coordinator.run", func(r any) {
		c.failAll(t)
		out, err = FailureText(mode), fmt.Errorf("request panicked: %v", r)
	}, func() {
		out, err = c.finish(ctx, t, mode, req)
	})
	return out, err
}

func (c *Coordinator) prepare(mode state.Mode, text string, trigger Trigger) (*ticket, command.Request) {
	if !mode.Valid() {
		logger.Warn("Ignoring request for unknown mode", "mode", mode)
		return nil, command.Request{}
	}
	snap := c.store.Snapshot()
	req := c.buildRequest(mode, text, snap.Language.Source.Label, snap.Language.Target.Label)
	return c.begin(trigger, []state.Mode{mode}, false), req
}

func (c *Coordinator) finish(ctx context.Context, t *ticket, mode state.Mode, req command.Request) (string, error) {
	res, err := c.call(ctx, t, mode, req)
	if err != nil {
		res = FailureText(mode)
	}
	c.commit(t, state.ResultTexts{mode: res}, true)
	return res, err
}

// Submit runs the current mode on the current input.
func (c *Coordinator) Submit(ctx context.Context, trigger Trigger) <-chan struct{} {
	snap := c.store.Snapshot()
	return c.Request(ctx, snap.Mode, snap.Input, trigger)
}

// KeyboardSubmit is Submit for the submit key chord; it does nothing while
// the window is translating.
func (c *Coordinator) KeyboardSubmit(ctx context.Context) <-chan struct{} {
	if c.store.Snapshot().Translating {
		return closed()
	}
	return c.Submit(ctx, FromKeyboard)
}

// SwitchMode selects m and, when the input is not blank, runs it.
func (c *Coordinator) SwitchMode(ctx context.Context, m state.Mode) <-chan struct{} {
	if !c.Active() {
		return closed()
	}
	c.store.SetMode(m)
	snap := c.store.Snapshot()
	if strings.TrimSpace(snap.Input) == "" {
		return closed()
	}
	return c.Request(ctx, m, snap.Input, FromModeSwitch)
}

// QuickTranslate puts text into the input and runs the current mode on it.
func (c *Coordinator) QuickTranslate(ctx context.Context, text string) <-chan struct{} {
	if !c.Active() {
		return closed()
	}
	c.store.SetInput(text)
	return c.Submit(ctx, FromShortcut)
}

// popupLanguages picks the labels for the compact popup: the detected
// language and its counterpart in the window's pair, or hints that let the
// model decide.
func (c *Coordinator) popupLanguages(text string) (string, string) {
	if c.detector != nil {
		if src, ok := c.detector.Detect(text); ok {
			pair := c.store.Snapshot().Language
			return src.Label, pair.Counterpart(src.Code).Label
		}
	}
	return DetectSourceHint, OppositeTargetHint
}

// TranslateAndCorrect is the compact popup flow: translate, then correct the
// same text. Correct is only issued once translate succeeded; any failure
// writes the failure text into both slots. Both slots are pending before
// language detection starts.
func (c *Coordinator) TranslateAndCorrect(ctx context.Context, text string) <-chan struct{} {
	t := c.begin(FromShortcut, []state.Mode{state.Translate, state.Correct}, true)
	if t == nil {
		return closed()
	}
	return c.spawn(t, func() {
		source, target := c.popupLanguages(text)
		tr := c.buildRequest(state.Translate, text, source, target)
		co := c.buildRequest(state.Correct, text, source, target)

		translated, err := c.call(ctx, t, state.Translate, tr)
		if err != nil {
			c.failAll(t)
			return
		}
		c.commit(t, state.ResultTexts{state.Translate: translated, state.Correct: state.PendingText}, false)

		corrected, err := c.call(ctx, t, state.Correct, co)
		if err != nil {
			c.failAll(t)
			return
		}
		c.commit(t, state.ResultTexts{state.Translate: translated, state.Correct: corrected}, true)
	})
}

// Flow selects how Attach reacts to a relayed shortcut.
type Flow int

const (
	// FlowQuick fills the input and runs the current mode.
	FlowQuick Flow = iota
	// FlowPopup runs translate then correct.
	FlowPopup
)

// Attach subscribes to name on src, typically the window bus the relay
// publishes to. The subscription is released by Close, and events that
// arrive after Close are ignored.
func (c *Coordinator) Attach(ctx context.Context, src events.Source, name string, flow Flow) error {
	return c.subs.Add(src, name, func(payload any) {
		if !c.Active() {
			return
		}
		text, ok := payload.(string)
		if !ok {
			logger.Warn("Dropped internal event with invalid payload", "event", name, "payload_type", fmt.Sprintf("%T", payload))
			return
		}
		switch flow {
		case FlowPopup:
			c.TranslateAndCorrect(ctx, text)
		default:
			c.QuickTranslate(ctx, text)
		}
	})
}
