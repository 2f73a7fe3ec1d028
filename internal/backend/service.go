// Package backend executes commands against the configured language-model
// provider and reacts to the global shortcut and the selection icon.
package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/auth"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/metadata"
	"github.com/oukeidos/transpop/internal/provider"
	"github.com/oukeidos/transpop/internal/relay"
	"github.com/oukeidos/transpop/internal/safe"
	"github.com/oukeidos/transpop/internal/selection"
	"github.com/oukeidos/transpop/internal/settings"
	"github.com/oukeidos/transpop/internal/window"
)

// DefaultDebounce is the minimum gap between two handled shortcut presses.
const DefaultDebounce = 300 * time.Millisecond

// Resolver builds a provider client. provider.Registry implements it.
type Resolver interface {
	Resolve(ctx context.Context, name, model string) (provider.Completer, error)
}

type Options struct {
	Resolver Resolver
	Prefs    settings.Preferences
	// Emitter receives events for the windows.
	Emitter events.Emitter
	Windows window.Manager
	// ReadSelection returns the currently selected text.
	ReadSelection selection.Reader
	Debounce      time.Duration
	// SaveKey stores an API key; defaults to auth.SaveKey.
	SaveKey func(service, key string) error
	Now     func() time.Time
}

type Service struct {
	resolver Resolver
	prefs    settings.Preferences
	emit     events.Emitter
	windows  window.Manager
	read     selection.Reader
	debounce time.Duration
	saveKey  func(service, key string) error
	now      func() time.Time

	mu           sync.Mutex
	lastShortcut time.Time
	prefsMu      sync.Mutex
	subs         events.Group
}

var _ command.Invoker = (*Service)(nil)

func New(opts Options) *Service {
	s := &Service{
		resolver: opts.Resolver,
		prefs:    opts.Prefs,
		emit:     opts.Emitter,
		windows:  opts.Windows,
		read:     opts.ReadSelection,
		debounce: opts.Debounce,
		saveKey:  opts.SaveKey,
		now:      opts.Now,
	}
	if s.emit == nil {
		s.emit = events.NewBus()
	}
	if s.windows == nil {
		s.windows = window.NewRemote(s.emit)
	}
	if s.read == nil {
		s.read = selection.ReadClipboard
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.saveKey == nil {
		s.saveKey = auth.SaveKey
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Keys returns the key lookup the provider registry uses: keychain first,
// then the environment when allowed, then the OpenAI key kept in prefs.
func Keys(prefs settings.Preferences, allowEnv bool) provider.KeySource {
	return func(name string) string {
		if key, _ := auth.GetKey(name, allowEnv); key != "" {
			return key
		}
		if name == "openai" && prefs != nil {
			return strings.TrimSpace(prefs.String(settings.KeyOpenAIAPIKey))
		}
		return ""
	}
}

func (s *Service) Translate(ctx context.Context, req command.Request) (string, error) {
	return s.complete(ctx, command.Translate, req)
}

func (s *Service) Correct(ctx context.Context, req command.Request) (string, error) {
	return s.complete(ctx, command.Correct, req)
}

func (s *Service) Refine(ctx context.Context, req command.Request) (string, error) {
	return s.complete(ctx, command.Refine, req)
}

func (s *Service) Invoke(ctx context.Context, name string, req command.Request) (string, error) {
	if !command.IsTextCommand(name) {
		return "", apperrors.New(apperrors.KindBadRequest,
			fmt.Sprintf("Unknown command %q.", name),
			fmt.Errorf("%w: %s", command.ErrUnknownCommand, name))
	}
	return s.complete(ctx, name, req)
}

func (s *Service) current() settings.AppSettings {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	return settings.Load(s.prefs)
}

// target picks provider and model: request values win, then settings.
// The saved model only applies when the saved provider is used.
func (s *Service) target(req command.Request) (string, string) {
	cur := s.current()
	name := strings.ToLower(command.Value(req.Provider))
	if name == "" {
		name = cur.Provider.Name
	}
	model := command.Value(req.Model)
	if model == "" && name == cur.Provider.Name {
		model = cur.Model
	}
	return name, metadata.ResolveModel(name, model)
}

func (s *Service) complete(ctx context.Context, name string, req command.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", apperrors.New(apperrors.KindValidation, "Nothing to "+name+": the text is empty.", err)
	}
	if s.resolver == nil {
		return "", apperrors.New(apperrors.KindUnavailable, "No provider is configured.", nil)
	}

	providerName, model := s.target(req)
	template := command.Value(req.Prompt)
	if strings.TrimSpace(template) == "" {
		template = DefaultPrompt(name)
	}
	prompt := BuildPrompt(template, command.Value(req.SourceLang), command.Value(req.TargetLang), req.Text)

	client, err := s.resolver.Resolve(ctx, providerName, model)
	if err != nil {
		return "", err
	}
	defer provider.Release(client)

	start := s.now()
	logger.Info("Calling provider", "command", name, "provider", providerName, "model", model, "chars", uniseg.GraphemeClusterCount(req.Text))
	reply, err := client.Complete(ctx, prompt)
	if err != nil {
		logger.Warn("Provider call failed", "command", name, "provider", providerName, "error", err)
		return "", err
	}
	ans := ExtractAnswer(reply)
	logger.Debug("Provider call finished", "command", name, "elapsed", s.now().Sub(start), "chars", uniseg.GraphemeClusterCount(ans))
	return ans, nil
}

// SaveSettings persists every non-nil field. The API key goes to the
// keychain for the chosen provider; for openai it is also kept in prefs.
func (s *Service) SaveSettings(ctx context.Context, req command.SaveRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.prefs == nil {
		return apperrors.New(apperrors.KindUnavailable, "Settings storage is not available.", nil)
	}

	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()

	providerName := strings.ToLower(s.prefs.String(settings.KeyProvider))
	if p := command.Value(req.Provider); p != "" {
		meta, ok := metadata.LookupProvider(p)
		if !ok {
			return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Unknown provider %q.", p), nil)
		}
		providerName = meta.Name
	}

	var windowType settings.ShortcutWindowType
	if raw := command.Value(req.ShortcutWindowType); raw != "" {
		t, err := settings.ParseShortcutWindowType(raw)
		if err != nil {
			return apperrors.New(apperrors.KindBadRequest, "Shortcut window type must be popup or main.", err)
		}
		windowType = t
	}

	var encodedPrompt string
	if req.Prompt != nil {
		if !command.IsTextCommand(req.Prompt.Type) {
			return apperrors.New(apperrors.KindBadRequest,
				fmt.Sprintf("Prompt type %q must be translate, correct or refine.", req.Prompt.Type), nil)
		}
		raw, err := settings.EncodePrompt(*req.Prompt)
		if err != nil {
			return apperrors.Validation(err)
		}
		encodedPrompt = raw
	}

	if key := command.Value(req.APIKey); key != "" {
		if err := s.storeKey(providerName, key); err != nil {
			return err
		}
	}
	if req.Provider != nil && providerName != "" {
		s.prefs.SetString(settings.KeyProvider, providerName)
	}
	if m := command.Value(req.Model); m != "" {
		s.prefs.SetString(settings.KeyModel, m)
	}
	if windowType != "" {
		s.prefs.SetString(settings.KeyShortcutWindowType, string(windowType))
	}
	if encodedPrompt != "" {
		s.prefs.SetString(settings.KeyPrompt, encodedPrompt)
	}
	logger.Info("Settings saved", "provider", providerName, "shortcut_window", windowType)
	return nil
}

func (s *Service) storeKey(providerName, key string) error {
	if providerName == "" {
		providerName = metadata.DefaultProvider
	}
	if providerName == "openai" {
		s.prefs.SetString(settings.KeyOpenAIAPIKey, key)
	}
	if !auth.Supports(providerName) {
		logger.Warn("Provider takes no API key; ignoring it", "provider", providerName)
		return nil
	}
	if err := s.saveKey(providerName, key); err != nil {
		if providerName == "openai" {
			logger.Warn("Keychain unavailable; OpenAI key kept in settings only", "error", err)
			return nil
		}
		return apperrors.New(apperrors.KindUnavailable, "Failed to save the API key to the OS keychain.", err)
	}
	return nil
}

func (s *Service) shortcutTarget() (string, string) {
	if s.current().ShortcutWindowType == settings.WindowMain {
		return window.Main, events.ShortcutQuickTranslate
	}
	return window.Popup, events.ShortcutPopupTranslate
}

// HandleShortcut reads the selection and hands it to the configured window.
// Presses within the debounce window of the last handled one are dropped,
// as are blank selections. It reports whether the selection was sent.
func (s *Service) HandleShortcut(ctx context.Context) bool {
	now := s.now()
	s.mu.Lock()
	if !s.lastShortcut.IsZero() && now.Sub(s.lastShortcut) < s.debounce {
		s.mu.Unlock()
		logger.Debug("Shortcut debounced")
		return false
	}
	s.lastShortcut = now
	s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		logger.Warn("Failed to read selected text", "error", err)
		return false
	}
	sel := strings.TrimSpace(raw)
	if sel == "" {
		logger.Debug("Shortcut ignored: nothing selected")
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	label, event := s.shortcutTarget()
	if err := s.emit.Emit(event, relay.Marker+sel); err != nil {
		logger.Warn("Failed to deliver selection", "event", event, "error", err)
		return false
	}
	s.raise(label)
	logger.Info("Shortcut handled", "window", label, "chars", uniseg.GraphemeClusterCount(sel))
	return true
}

// HandleIconClicked opens the popup with the text the icon was holding and
// hides the icon.
func (s *Service) HandleIconClicked(ctx context.Context, sel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel = strings.TrimSpace(sel)
	if sel != "" {
		s.raise(window.Popup)
		if err := s.emit.Emit(events.ShortcutPopupTranslate, relay.Marker+sel); err != nil {
			return fmt.Errorf("deliver selection to popup: %w", err)
		}
	}
	if err := s.windows.Hide(window.SelectionIcon); err != nil {
		logger.Warn("Failed to hide selection icon", "error", err)
	}
	return nil
}

func (s *Service) raise(label string) {
	if err := window.Raise(s.windows, label); err != nil {
		logger.Warn("Failed to raise window", "window", label, "error", err)
	}
}

// Attach subscribes the service to the UI events it serves.
func (s *Service) Attach(ctx context.Context, src events.Source) error {
	err := s.subs.Add(src, events.IconClicked, func(payload any) {
		sel, ok := payload.(string)
		if !ok {
			logger.Warn("Dropping icon click with unexpected payload", "payload_type", fmt.Sprintf("%T", payload))
			return
		}
		safe.Go("backend.icon-clicked", func() {
			if err := s.HandleIconClicked(ctx, sel); err != nil {
				logger.Warn("Icon click failed", "error", err)
			}
		})
	})
	if err != nil {
		return err
	}
	if err := s.subs.Add(src, events.SetSelectedText, func(any) {
		if !s.current().DoubleClickEnabled {
			return
		}
		if err := s.windows.Show(window.SelectionIcon); err != nil {
			logger.Warn("Failed to show selection icon", "error", err)
		}
	}); err != nil {
		return err
	}
	return s.subs.Add(src, events.ShortcutTriggered, func(any) {
		safe.Go("backend.shortcut", func() { s.HandleShortcut(ctx) })
	})
}

// Close drops subscriptions and tells the windows the app is going away.
func (s *Service) Close() {
	s.subs.Close()
	if err := s.emit.Emit(events.AppShutdown, nil); err != nil {
		logger.Debug("Shutdown notice not delivered", "error", err)
	}
}
