// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/llm"
)

// DefaultStorage is where the store lives when nothing else is configured
const DefaultStorage = "~/.procwatch/store.json"

// DefaultPort is the HTTP port for serve
const DefaultPort = 8080

// DefaultBatchDelay is the pause between batches
const DefaultBatchDelay = "5s"

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from Defaults, the environment
// or CLI flags. Durations are Go duration strings such as "5s" or "2m".
type Config struct {
	// Storage
	Storage string `json:"storage,omitempty"` // file path, sqlite://, postgres:// or memory:

	// Backend
	Provider  string `json:"provider,omitempty" validate:"omitempty,oneof=anthropic gemini"`
	Model     string `json:"model,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty" validate:"omitempty,url"`
	MaxTokens int    `json:"max_tokens,omitempty" validate:"gte=0,lte=64000"`
	Timeout   string `json:"timeout,omitempty" validate:"omitempty,duration"`

	// Timings
	BatchDelay       string `json:"batch_delay,omitempty" validate:"omitempty,duration"`
	Cooldown         string `json:"cooldown,omitempty" validate:"omitempty,duration"`
	RateLimitBackoff string `json:"rate_limit_backoff,omitempty" validate:"omitempty,duration"`

	// Server
	Port        int  `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	RequireAuth bool `json:"require_auth,omitempty"`

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Storage:          DefaultStorage,
		Provider:         string(llm.ProviderAnthropic),
		MaxTokens:        llm.DefaultMaxTokens,
		Timeout:          llm.DefaultTimeout.String(),
		BatchDelay:       DefaultBatchDelay,
		Cooldown:         gate.DefaultCooldown.String(),
		RateLimitBackoff: gate.DefaultRateLimitBackoff.String(),
		Port:             DefaultPort,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

// Validate checks that the configuration has valid values.
// Missing values are not errors; they are filled by MergeWithDefaults.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("'%s' failed '%s'", jsonName(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

func jsonName(field string) string {
	switch field {
	case "APIKey":
		return "api_key"
	case "BaseURL":
		return "base_url"
	case "MaxTokens":
		return "max_tokens"
	case "BatchDelay":
		return "batch_delay"
	case "RateLimitBackoff":
		return "rate_limit_backoff"
	case "RequireAuth":
		return "require_auth"
	}
	return strings.ToLower(field)
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Storage == "" {
		result.Storage = defaults.Storage
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.Timeout == "" {
		result.Timeout = defaults.Timeout
	}
	if result.BatchDelay == "" {
		result.BatchDelay = defaults.BatchDelay
	}
	if result.Cooldown == "" {
		result.Cooldown = defaults.Cooldown
	}
	if result.RateLimitBackoff == "" {
		result.RateLimitBackoff = defaults.RateLimitBackoff
	}

	if result.MaxTokens == 0 {
		result.MaxTokens = defaults.MaxTokens
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv fills empty fields from the environment. Storage falls back to
// PROCWATCH_STORAGE and then DATABASE_URL; the API key is read from the
// variable matching the provider.
func (c *Config) ApplyEnv() {
	if c.Storage == "" {
		c.Storage = os.Getenv("PROCWATCH_STORAGE")
	}
	if c.Storage == "" {
		c.Storage = os.Getenv("DATABASE_URL")
	}
	if c.Provider == "" {
		c.Provider = os.Getenv("PROCWATCH_PROVIDER")
	}
	if c.APIKey == "" {
		switch llm.Provider(c.Provider) {
		case llm.ProviderGemini:
			c.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// LLMConfig converts the backend fields into an llm.Config
func (c *Config) LLMConfig() *llm.Config {
	var cfg *llm.Config
	if llm.Provider(c.Provider) == llm.ProviderGemini {
		cfg = llm.DefaultGeminiConfig()
	} else {
		cfg = llm.DefaultConfig()
	}
	if c.Model != "" {
		cfg = cfg.WithModel(c.Model)
	}
	cfg.APIKey = c.APIKey
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.MaxTokens > 0 {
		cfg.MaxTokens = c.MaxTokens
	}
	cfg.Timeout = durationOr(c.Timeout, cfg.Timeout)
	return cfg
}

// BatchDelayDuration returns the parsed batch delay
func (c *Config) BatchDelayDuration() time.Duration {
	d, _ := time.ParseDuration(DefaultBatchDelay)
	return durationOr(c.BatchDelay, d)
}

// CooldownDuration returns the parsed cooldown
func (c *Config) CooldownDuration() time.Duration {
	return durationOr(c.Cooldown, gate.DefaultCooldown)
}

// RateLimitBackoffDuration returns the parsed rate-limit fallback
func (c *Config) RateLimitBackoffDuration() time.Duration {
	return durationOr(c.RateLimitBackoff, gate.DefaultRateLimitBackoff)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
