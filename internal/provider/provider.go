// Package provider resolves a provider name and model into a ready client.
package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/gemini"
	"github.com/oukeidos/transpop/internal/groq"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/metadata"
	"github.com/oukeidos/transpop/internal/ollama"
	"github.com/oukeidos/transpop/internal/openai"
)

// Completer turns one prompt into one reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Target is what a Factory needs to build a client.
type Target struct {
	Provider metadata.Provider
	Model    string
	APIKey   string
	BaseURL  string
}

type Factory func(ctx context.Context, t Target) (Completer, error)

// KeySource returns the stored API key for a provider, or "" if none.
type KeySource func(provider string) string

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	baseURLs  map[string]string
	keys      KeySource
}

func NewRegistry(keys KeySource) *Registry {
	if keys == nil {
		keys = func(string) string { return "" }
	}
	return &Registry{
		factories: make(map[string]Factory),
		baseURLs:  make(map[string]string),
		keys:      keys,
	}
}

// Register installs or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// SetBaseURL overrides the endpoint handed to name's factory.
func (r *Registry) SetBaseURL(name, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURLs[strings.ToLower(name)] = strings.TrimSpace(url)
}

// Resolve builds a client for name and model. An empty name means the
// default provider and an empty model the provider's default model.
// Callers pass the result to Release when done.
func (r *Registry) Resolve(ctx context.Context, name, model string) (Completer, error) {
	if strings.TrimSpace(name) == "" {
		name = metadata.DefaultProvider
	}
	p, ok := metadata.LookupProvider(name)
	if !ok {
		return nil, apperrors.New(apperrors.KindBadRequest,
			fmt.Sprintf("Unknown provider %q. Available: %s.", name, strings.Join(metadata.ProviderNames(), ", ")), nil)
	}

	r.mu.RLock()
	f, ok := r.factories[p.Name]
	baseURL := r.baseURLs[p.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.KindUnavailable,
			fmt.Sprintf("Provider %s is not enabled in this build.", p.Label), nil)
	}

	t := Target{
		Provider: p,
		Model:    metadata.ResolveModel(p.Name, model),
		BaseURL:  baseURL,
	}
	if p.NeedsKey {
		t.APIKey = strings.TrimSpace(r.keys(p.Name))
		if t.APIKey == "" {
			return nil, apperrors.New(apperrors.KindAuth,
				fmt.Sprintf("No API key is set for %s. Save one in settings or run `transpop env setup --service %s`.", p.Label, p.Name), nil)
		}
	}

	logger.Debug("Resolved provider", "provider", p.Name, "model", t.Model)
	return f(ctx, t)
}

// Release closes c if it holds resources.
func Release(c Completer) {
	if closer, ok := c.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close provider client", "error", err)
		}
	}
}

// Endpoints are optional base URL overrides for the HTTP providers.
type Endpoints struct {
	OpenAI string
	Groq   string
	Ollama string
}

// NewDefault returns a registry with every built-in provider registered.
func NewDefault(keys KeySource, ep Endpoints) *Registry {
	r := NewRegistry(keys)
	r.Register("ollama", func(_ context.Context, t Target) (Completer, error) {
		return ollama.NewClient(t.Model).WithBaseURL(t.BaseURL), nil
	})
	r.Register("openai", func(_ context.Context, t Target) (Completer, error) {
		return openai.NewClient(t.APIKey, t.Model).WithBaseURL(t.BaseURL), nil
	})
	r.Register("groq", func(_ context.Context, t Target) (Completer, error) {
		return groq.NewClient(t.APIKey, t.Model).WithBaseURL(t.BaseURL), nil
	})
	r.Register("gemini", func(ctx context.Context, t Target) (Completer, error) {
		c, err := gemini.NewClient(ctx, t.APIKey, t.Model)
		if err != nil {
			return nil, apperrors.New(apperrors.KindTransient, "Failed to initialize Gemini client.", err)
		}
		return c, nil
	})
	r.SetBaseURL("openai", ep.OpenAI)
	r.SetBaseURL("groq", ep.Groq)
	r.SetBaseURL("ollama", ep.Ollama)
	return r
}
