package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiBackend implements Backend for Google Gemini. Replies are rewritten
// into the same content-block envelope the Anthropic backend returns.
type GeminiBackend struct {
	client *genai.Client
	config *Config
}

// NewGeminiBackend creates a new Gemini backend
func NewGeminiBackend(ctx context.Context, config *Config) (*GeminiBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{client: client, config: config}, nil
}

// Send generates content for one request. API errors with an HTTP code are
// returned as responses so rate limits reach the caller as 429s.
func (b *GeminiBackend) Send(ctx context.Context, req Request) (*Response, error) {
	model := b.client.GenerativeModel(b.config.GetModel())
	model.SetTemperature(0.1)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.config.GetMaxTokens()
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		if r, ok := apiErrorResponse(err); ok && ctx.Err() == nil {
			return r, nil
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return geminiEnvelope(resp)
}

// Model returns the model name
func (b *GeminiBackend) Model() string {
	return b.config.GetModel()
}

// Close releases resources held by the client
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// apiErrorResponse converts a googleapi error into a raw response
func apiErrorResponse(err error) (*Response, bool) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code == 0 {
		return nil, false
	}

	body := gerr.Body
	if body == "" || !json.Valid([]byte(body)) {
		encoded, _ := json.Marshal(map[string]interface{}{
			"error": map[string]interface{}{"message": gerr.Message},
		})
		body = string(encoded)
	}

	header := gerr.Header
	if header == nil {
		header = http.Header{}
	}
	return &Response{StatusCode: gerr.Code, Header: header, Body: []byte(body)}, true
}

// geminiEnvelope renders the first candidate as {"content":[{"type":"text",...}]}
func geminiEnvelope(resp *genai.GenerateContentResponse) (*Response, error) {
	envelope := messageEnvelope{Content: []contentBlock{}}

	if resp != nil && len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		envelope.StopReason = candidate.FinishReason.String()
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					envelope.Content = append(envelope.Content, contentBlock{Type: "text", Text: string(text)})
				}
			}
		}
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
	}, nil
}
