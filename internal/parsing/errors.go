package parsing

import (
	"errors"
	"fmt"
)

// ErrNoStructuredResult means the response text held no usable notices object
var ErrNoStructuredResult = errors.New("no valid structured result")

// snippetLen bounds the response text quoted in a ParseError
const snippetLen = 80

// ParseError is returned when response text cannot be turned into a Result.
// Snippet holds the start of the text that was tried, for logs.
type ParseError struct {
	Message string
	Snippet string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := "parse error: " + e.Message
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (near %q)", e.Snippet)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func noResult(message, text string) error {
	return &ParseError{Message: message, Snippet: snippet(text), Cause: ErrNoStructuredResult}
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) > snippetLen {
		return string(r[:snippetLen]) + "..."
	}
	return string(r)
}
