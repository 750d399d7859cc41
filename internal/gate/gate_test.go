package gate

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestCheck_Open(t *testing.T) {
	status := Check(nil, nil, now, DefaultCooldown)
	assert.False(t, status.Blocked)
	assert.Equal(t, ReasonNone, status.Reason)
	assert.Zero(t, status.Remaining(now))
}

func TestCheck_Cooldown(t *testing.T) {
	last := now.Add(-2 * time.Minute)

	status := Check(&last, nil, now, DefaultCooldown)
	require.True(t, status.Blocked)
	assert.Equal(t, ReasonCooldown, status.Reason)
	assert.Equal(t, last.Add(5*time.Minute), status.Until)
	assert.Equal(t, 3*time.Minute, status.Remaining(now))

	expired := now.Add(-5 * time.Minute)
	assert.False(t, Check(&expired, nil, now, DefaultCooldown).Blocked)
}

func TestCheck_RateLimitLater(t *testing.T) {
	last := now.Add(-time.Minute)
	rl := now.Add(10 * time.Minute)

	status := Check(&last, &rl, now, DefaultCooldown)
	require.True(t, status.Blocked)
	assert.Equal(t, ReasonRateLimited, status.Reason)
	assert.Equal(t, rl, status.Until)
}

func TestCheck_CooldownLater(t *testing.T) {
	last := now.Add(-time.Minute)
	rl := now.Add(time.Minute)

	status := Check(&last, &rl, now, DefaultCooldown)
	assert.Equal(t, ReasonCooldown, status.Reason)
	assert.Equal(t, last.Add(DefaultCooldown), status.Until)
}

func TestCheck_ExpiredRateLimit(t *testing.T) {
	status := Check(nil, ptr(now.Add(-time.Second)), now, DefaultCooldown)
	assert.False(t, status.Blocked)
}

func TestResumeAt_Body(t *testing.T) {
	body := []byte(`{"type":"error","error":{"type":"rate_limit_error","resetsAt":1748875200}}`)
	at, ok := ResumeAt(nil, body, now, DefaultRateLimitBackoff)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1748875200, 0).UTC(), at)
}

func TestResumeAt_BodyMetadata(t *testing.T) {
	body := []byte(`{"error":{"metadata":{"resetsAt":1748875260}}}`)
	at, ok := ResumeAt(nil, body, now, DefaultRateLimitBackoff)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1748875260, 0).UTC(), at)
}

func TestResumeAt_RetryAfterSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "90")
	at, ok := ResumeAt(h, []byte(`{"error":{"message":"slow down"}}`), now, DefaultRateLimitBackoff)
	assert.True(t, ok)
	assert.Equal(t, now.Add(90*time.Second), at)
}

func TestResumeAt_RetryAfterDate(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", now.Add(3*time.Minute).Format(http.TimeFormat))
	at, ok := ResumeAt(h, nil, now, DefaultRateLimitBackoff)
	assert.True(t, ok)
	assert.Equal(t, now.Add(3*time.Minute), at)
}

func TestResumeAt_ProviderResetHeader(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRequestsReset, "2025-06-02T14:07:00Z")
	at, ok := ResumeAt(h, []byte("not json"), now, DefaultRateLimitBackoff)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 7, 0, 0, time.UTC), at)
}

func TestResumeAt_Fallback(t *testing.T) {
	at, ok := ResumeAt(http.Header{}, []byte(`{}`), now, DefaultRateLimitBackoff)
	assert.False(t, ok)
	assert.Equal(t, now.Add(2*time.Minute), at)
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "", FormatCountdown(0))
	assert.Equal(t, "", FormatCountdown(-time.Second))
	assert.Equal(t, "12s", FormatCountdown(12*time.Second))
	assert.Equal(t, "4m 12s", FormatCountdown(4*time.Minute+12*time.Second+300*time.Millisecond))
}

func TestBlockedError(t *testing.T) {
	err := &BlockedError{Until: now.Add(time.Minute), Reason: ReasonCooldown}
	assert.Contains(t, err.Error(), "cooldown")
	assert.Equal(t, time.Minute, err.RetryAfter(now))
	assert.Zero(t, err.RetryAfter(now.Add(2*time.Minute)))
}
