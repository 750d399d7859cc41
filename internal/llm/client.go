package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Request is one backend call: a batch prompt under the system prompt
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	WebSearch bool
}

// Response is the raw backend reply. Non-2xx statuses are returned as
// responses, not errors, so callers can read rate limit details.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Backend is an abstraction over search-capable LLM providers. Send returns
// an error only when no response was received (transport failure or
// cancellation).
type Backend interface {
	Send(ctx context.Context, req Request) (*Response, error)
	// Model returns the model name used for requests
	Model() string
	// Close releases any resources held by the backend
	Close() error
}

// NewBackend creates a backend based on configuration
func NewBackend(ctx context.Context, config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicBackend(config)
	case ProviderGemini:
		return NewGeminiBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
}
