package llm

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestGeminiEnvelope(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"uk_fts":[`),
				genai.Text(`{"title":"x"}]}`),
			}},
		}},
	}

	out, err := geminiEnvelope(resp)
	require.NoError(t, err)
	assert.True(t, out.OK())

	text, err := ExtractText(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "{\"uk_fts\":[\n{\"title\":\"x\"}]}", text)
}

func TestGeminiEnvelope_NoCandidates(t *testing.T) {
	out, err := geminiEnvelope(&genai.GenerateContentResponse{})
	require.NoError(t, err)

	text, err := ExtractText(out.Body)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestAPIErrorResponse(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "60")
	err := fmt.Errorf("generate: %w", &googleapi.Error{
		Code:    http.StatusTooManyRequests,
		Message: "quota exceeded",
		Header:  header,
	})

	resp, ok := apiErrorResponse(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.JSONEq(t, `{"error":{"message":"quota exceeded"}}`, string(resp.Body))
}

func TestAPIErrorResponse_NotAPIError(t *testing.T) {
	_, ok := apiErrorResponse(fmt.Errorf("dial tcp: connection refused"))
	assert.False(t, ok)
}
