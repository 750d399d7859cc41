package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/procurement-watch/internal/schemas"
)

type messageEnvelope struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// EnvelopeError is returned when a 2xx body is not a message envelope
type EnvelopeError struct {
	Message string
	Cause   error
}

func (e *EnvelopeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed envelope: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed envelope: %s", e.Message)
}

func (e *EnvelopeError) Unwrap() error {
	return e.Cause
}

// ExtractText validates a message envelope and joins its text blocks with
// newlines. Tool use and search result blocks are skipped.
func ExtractText(body []byte) (string, error) {
	if err := schemas.Validate(schemas.Envelope, body); err != nil {
		return "", &EnvelopeError{Message: "envelope failed validation", Cause: err}
	}

	var envelope messageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", &EnvelopeError{Message: "envelope did not decode", Cause: err}
	}

	var parts []string
	for _, block := range envelope.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
