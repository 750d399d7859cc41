// Package llm provides the search backend used by pull runs. A backend takes
// one prompt and returns the raw HTTP-like response so callers can classify
// rate limits and failures themselves.
package llm

import "time"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderAnthropic is the Anthropic Messages API with the web search tool
	ProviderAnthropic Provider = "anthropic"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Defaults for pull requests
const (
	DefaultMaxTokens = 4096
	DefaultTimeout   = 180 * time.Second
)

// DefaultModels maps each provider to the model used when none is configured
var DefaultModels = map[Provider]string{
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderGemini:    "gemini-2.5-flash",
}

// Config holds the backend configuration
type Config struct {
	Provider  Provider
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultConfig returns the default configuration (Anthropic)
func DefaultConfig() *Config {
	return &Config{
		Provider:  ProviderAnthropic,
		Model:     DefaultModels[ProviderAnthropic],
		BaseURL:   DefaultAnthropicBaseURL,
		MaxTokens: DefaultMaxTokens,
		Timeout:   DefaultTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider:  ProviderGemini,
		Model:     DefaultModels[ProviderGemini],
		MaxTokens: DefaultMaxTokens,
		Timeout:   DefaultTimeout,
	}
}

// GetModel returns the configured model or the provider default
func (c *Config) GetModel() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModels[c.Provider]
}

// GetMaxTokens returns the configured token cap or the default
func (c *Config) GetMaxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

// WithModel returns a new Config with a specific model
func (c *Config) WithModel(model string) *Config {
	newConfig := *c
	newConfig.Model = model
	return &newConfig
}
