package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultAnthropicBaseURL is the public API endpoint
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	anthropicVersion = "2023-06-01"
	webSearchType    = "web_search_20250305"
	webSearchName    = "web_search"
)

// AnthropicBackend implements Backend over the Anthropic Messages API
type AnthropicBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	config  *Config
}

type messagesRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	System    string            `json:"system,omitempty"`
	Messages  []messagesMessage `json:"messages"`
	Tools     []messagesTool    `json:"tools,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesTool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// NewAnthropicBackend creates a new Anthropic backend
func NewAnthropicBackend(config *Config) (*AnthropicBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &AnthropicBackend{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.GetModel(),
		config:  config,
	}, nil
}

// Send posts one message and returns the raw reply
func (b *AnthropicBackend) Send(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.config.GetMaxTokens()
	}

	body := messagesRequest{
		Model:     b.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []messagesMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.WebSearch {
		body.Tools = []messagesTool{{Type: webSearchType, Name: webSearchName}}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

// Model returns the model name
func (b *AnthropicBackend) Model() string {
	return b.model
}

// Close releases resources
func (b *AnthropicBackend) Close() error {
	return nil
}
