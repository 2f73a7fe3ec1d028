package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/oukeidos/transpop/internal/auth"
	"github.com/oukeidos/transpop/internal/backend"
	"github.com/oukeidos/transpop/internal/config"
	"github.com/oukeidos/transpop/internal/kvstore"
	"github.com/oukeidos/transpop/internal/language"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/prompt"
	"github.com/oukeidos/transpop/internal/provider"
	"github.com/oukeidos/transpop/internal/settings"
)

var (
	isTerminal   = term.IsTerminal
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
	saveKey      = auth.SaveKey
	deleteKey    = auth.DeleteKey
	confirmer    = prompt.DefaultConfirmer
	loadConfig   = config.Load
	// newResolver builds the provider registry; tests swap it for a fake.
	newResolver = func(cfg *config.Config, prefs settings.Preferences) backend.Resolver {
		return provider.NewDefault(backend.Keys(prefs, cfg.AllowEnvKeys), provider.Endpoints{
			OpenAI: cfg.OpenAIBaseURL,
			Groq:   cfg.GroqBaseURL,
			Ollama: cfg.OllamaURL,
		})
	}
)

func openSettings(path string) (*kvstore.FileStore, error) {
	if strings.TrimSpace(path) == "" {
		p, err := kvstore.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return kvstore.Open(path)
}

// resolveLanguage accepts a code, an alias or a display label.
func resolveLanguage(input string) (language.Descriptor, error) {
	if d, ok := language.Get(input); ok {
		return d, nil
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return language.Descriptor{}, fmt.Errorf("language is empty")
	}
	for _, d := range language.Supported() {
		if strings.EqualFold(d.Label, needle) {
			return d, nil
		}
	}
	return language.Descriptor{}, fmt.Errorf("unsupported language: %s (see `transpop list`)", input)
}

// readText joins args, or reads in when there are none or the only arg is "-".
func readText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" || len(args) == 0 {
		if f, ok := in.(*os.File); ok && len(args) == 0 && isTerminal(int(f.Fd())) {
			return "", fmt.Errorf("text is required (pass it as arguments or pipe it on stdin)")
		}
		data, err := io.ReadAll(io.LimitReader(in, 1<<20))
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

func maskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "not set"
	}
	if len(key) <= 8 {
		return "set"
	}
	return "set (" + key[:3] + "…" + key[len(key)-2:] + ")"
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}

// inProcessBackend runs the backend inside the CLI process.
func inProcessBackend(root *rootOptions, prefs settings.Preferences) *backend.Service {
	return backend.New(backend.Options{
		Resolver: newResolver(root.cfg, prefs),
		Prefs:    prefs,
		SaveKey:  func(service, key string) error { return saveKey(service, key) },
	})
}
