package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderAnthropic, config.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", config.GetModel())
	assert.Equal(t, 4096, config.GetMaxTokens())
	assert.Equal(t, DefaultAnthropicBaseURL, config.BaseURL)
}

func TestDefaultGeminiConfig(t *testing.T) {
	config := DefaultGeminiConfig()
	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash", config.GetModel())
}

func TestGetModel_ProviderFallback(t *testing.T) {
	config := &Config{Provider: ProviderGemini}
	assert.Equal(t, DefaultModels[ProviderGemini], config.GetModel())
	assert.Equal(t, DefaultMaxTokens, config.GetMaxTokens())
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel("claude-custom")

	assert.Equal(t, "claude-sonnet-4-20250514", config.GetModel())
	assert.Equal(t, "claude-custom", newConfig.GetModel())
	assert.Equal(t, config.MaxTokens, newConfig.MaxTokens)
}

func TestNewBackend(t *testing.T) {
	backend, err := NewBackend(context.Background(), &Config{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", backend.Model())
	assert.NoError(t, backend.Close())

	_, err = NewBackend(context.Background(), &Config{Provider: "openai", APIKey: "k"})
	assert.Error(t, err)
}
