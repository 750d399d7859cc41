package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/scheduler"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "busy", err: scheduler.ErrBusy, want: http.StatusConflict},
		{name: "wrapped busy", err: fmt.Errorf("pull: %w", scheduler.ErrBusy), want: http.StatusConflict},
		{name: "blocked", err: &gate.BlockedError{Until: time.Now().Add(time.Minute), Reason: gate.ReasonCooldown}, want: http.StatusTooManyRequests},
		{name: "validation", err: &ErrValidation{Field: "limit", Message: "must be positive"}, want: http.StatusBadRequest},
		{name: "not running", err: &ErrNotRunning{}, want: http.StatusConflict},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrValidation_Error(t *testing.T) {
	err := &ErrValidation{Field: "region", Message: "unknown region"}
	assert.Equal(t, "validation error: region - unknown region", err.Error())
}
