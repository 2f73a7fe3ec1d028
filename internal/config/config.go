// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/oukeidos/transpop/internal/coordinator"
)

// Prefix applied to every variable, e.g. TRANSPOP_LISTEN_ADDR.
const Prefix = "TRANSPOP"

type Config struct {
	ListenAddr       string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:47810"`
	OllamaURL        string        `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL" default:""`
	GroqBaseURL      string        `envconfig:"GROQ_BASE_URL" default:""`
	ShortcutDebounce time.Duration `envconfig:"SHORTCUT_DEBOUNCE" default:"300ms"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	SettingsPath     string        `envconfig:"SETTINGS_PATH" default:""`
	AllowEnvKeys     bool          `envconfig:"ALLOW_ENV_KEYS" default:"true"`
	RequestPolicy    string        `envconfig:"REQUEST_POLICY" default:"last-writer-wins"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.ListenAddr)); err != nil {
		return fmt.Errorf("%s_LISTEN_ADDR must be host:port: %w", Prefix, err)
	}
	for name, raw := range map[string]string{
		"OLLAMA_URL":      c.OllamaURL,
		"OPENAI_BASE_URL": c.OpenAIBaseURL,
		"GROQ_BASE_URL":   c.GroqBaseURL,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s_%s must be an http(s) URL", Prefix, name)
		}
	}
	if strings.TrimSpace(c.OllamaURL) == "" {
		return fmt.Errorf("%s_OLLAMA_URL is required", Prefix)
	}
	if c.ShortcutDebounce < 0 {
		return fmt.Errorf("%s_SHORTCUT_DEBOUNCE must be >= 0", Prefix)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%s_LOG_LEVEL must be one of debug, info, warn, error", Prefix)
	}
	if _, err := coordinator.ParsePolicy(c.RequestPolicy); err != nil {
		return fmt.Errorf("%s_REQUEST_POLICY must be one of last-writer-wins, discard-stale, ignore-while-busy", Prefix)
	}
	return nil
}

// Policy is the overlap policy every window coordinator uses.
func (c *Config) Policy() coordinator.Policy {
	p, err := coordinator.ParsePolicy(c.RequestPolicy)
	if err != nil {
		return coordinator.LastWriterWins
	}
	return p
}

// BridgeURL is the websocket endpoint a UI process dials.
func (c *Config) BridgeURL() string {
	return "ws://" + strings.TrimSpace(c.ListenAddr) + "/ipc"
}
