// Package server provides the HTTP API for observing and operating pull runs.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/scheduler"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotRunning indicates a stop was requested with no active run
type ErrNotRunning struct{}

func (e *ErrNotRunning) Error() string {
	return "no pull run is in progress"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		blocked    *gate.BlockedError
		validation *ErrValidation
		notRunning *ErrNotRunning
	)
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &blocked):
		return http.StatusTooManyRequests
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
