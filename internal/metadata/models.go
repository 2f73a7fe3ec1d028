package metadata

import "strings"

// Provider describes a language-model backend the user can pick.
type Provider struct {
	Name         string   `json:"name"`
	Label        string   `json:"label"`
	Models       []string `json:"models,omitempty"`
	DefaultModel string   `json:"-"`
	// NeedsKey is false for locally hosted providers.
	NeedsKey bool `json:"-"`
}

const DefaultProvider = "ollama"

// Providers lists the built-in providers in menu order.
var Providers = []Provider{
	{
		Name:         "ollama",
		Label:        "Ollama",
		Models:       []string{"gemma3", "phi3", "llama3"},
		DefaultModel: "gemma3",
	},
	{
		Name:         "openai",
		Label:        "OpenAI",
		Models:       []string{"gpt-4.1-nano", "gpt-4.1-mini", "gpt-4o-mini"},
		DefaultModel: "gpt-4o",
		NeedsKey:     true,
	},
	{
		Name:         "gemini",
		Label:        "Gemini",
		Models:       []string{"gemini-2.0-flash-lite", "gemini-2.5-flash"},
		DefaultModel: "gemini-2.0-flash-lite",
		NeedsKey:     true,
	},
	{
		Name:         "groq",
		Label:        "Groq",
		Models:       []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
		DefaultModel: "llama-3.1-8b-instant",
		NeedsKey:     true,
	},
}

// LookupProvider finds a provider by name, case-insensitively.
func LookupProvider(name string) (Provider, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range Providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}

// ProviderNames returns provider names in menu order.
func ProviderNames() []string {
	out := make([]string, 0, len(Providers))
	for _, p := range Providers {
		out = append(out, p.Name)
	}
	return out
}

// ResolveModel returns model if set, otherwise the provider default.
// Unknown model names are passed through; providers accept more than the menu lists.
func ResolveModel(provider, model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	if p, ok := LookupProvider(provider); ok {
		return p.DefaultModel
	}
	return ""
}
