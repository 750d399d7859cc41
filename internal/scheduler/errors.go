package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/procurement-watch/internal/parsing"
)

// ErrBusy is returned when a run or clear is requested while a run is active
var ErrBusy = errors.New("a pull run is already in progress")

// Outcome messages recorded for errored sources
const (
	msgCancelled         = "cancelled"
	msgRateLimited       = "rate limited"
	msgRateLimitCascade  = "aborted due to rate limit"
	msgEnvelopeFailure   = "response parse failure"
	msgNoStructured      = "no valid structured result"
	msgPromptUnavailable = "prompt unavailable"
)

// TransportError means no response was received for a batch
type TransportError struct {
	Batch string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("batch %s: network error: %v", e.Batch, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RateLimitedError means the backend answered 429 and the run stopped
type RateLimitedError struct {
	Batch    string
	ResumeAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("batch %s: rate limited until %s", e.Batch, e.ResumeAt.Format(time.RFC3339))
}

// BackendError means the backend answered with a non-2xx status other than 429
type BackendError struct {
	Batch      string
	StatusCode int
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("batch %s: HTTP %d", e.Batch, e.StatusCode)
}

// MalformedEnvelopeError means a 2xx body was not a message envelope
type MalformedEnvelopeError struct {
	Batch string
	Cause error
}

func (e *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("batch %s: %s: %v", e.Batch, msgEnvelopeFailure, e.Cause)
}

func (e *MalformedEnvelopeError) Unwrap() error {
	return e.Cause
}

// outcomeMessage renders a batch error as the per-source error text
func outcomeMessage(err error) string {
	var (
		transport *TransportError
		limited   *RateLimitedError
		backend   *BackendError
		envelope  *MalformedEnvelopeError
	)
	switch {
	case errors.As(err, &transport):
		if isCancellation(transport.Cause) {
			return msgCancelled
		}
		return "network error: " + transport.Cause.Error()
	case errors.As(err, &limited):
		return msgRateLimited
	case errors.As(err, &backend):
		return fmt.Sprintf("HTTP %d", backend.StatusCode)
	case errors.As(err, &envelope):
		return msgEnvelopeFailure
	case errors.Is(err, parsing.ErrNoStructuredResult):
		return msgNoStructured
	default:
		return err.Error()
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
