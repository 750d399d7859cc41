// Package gate decides whether a new pull run may start. A run is blocked by a
// cooldown after the previous run start and by a backend rate limit window.
package gate

import (
	"fmt"
	"time"
)

const (
	// DefaultCooldown is the minimum interval between run starts
	DefaultCooldown = 5 * time.Minute
	// DefaultRateLimitBackoff applies when a rate limit response carries no resume time
	DefaultRateLimitBackoff = 2 * time.Minute
)

// Reason explains why the gate is closed
type Reason string

// Reason constants
const (
	ReasonNone        Reason = ""
	ReasonCooldown    Reason = "cooldown"
	ReasonRateLimited Reason = "rate_limited"
)

// Status is the result of a gate check
type Status struct {
	Blocked bool
	Until   time.Time
	Reason  Reason
}

// Remaining returns how long the gate stays closed as of now
func (s Status) Remaining(now time.Time) time.Duration {
	if !s.Blocked || !s.Until.After(now) {
		return 0
	}
	return s.Until.Sub(now)
}

// Check combines the cooldown and rate limit conditions. The gate is blocked
// until the later of lastRunStartedAt+cooldown and rateLimitedUntil.
func Check(lastRunStartedAt, rateLimitedUntil *time.Time, now time.Time, cooldown time.Duration) Status {
	var status Status

	if lastRunStartedAt != nil {
		if until := lastRunStartedAt.Add(cooldown); until.After(now) {
			status = Status{Blocked: true, Until: until, Reason: ReasonCooldown}
		}
	}

	if rateLimitedUntil != nil && rateLimitedUntil.After(now) && rateLimitedUntil.After(status.Until) {
		status = Status{Blocked: true, Until: *rateLimitedUntil, Reason: ReasonRateLimited}
	}

	return status
}

// FormatCountdown renders a remaining duration as "4m 12s" or "12s"
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
