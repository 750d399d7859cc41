package gate

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers consulted for a resume time, in order
const (
	HeaderRetryAfter        = "Retry-After"
	HeaderRequestsReset     = "anthropic-ratelimit-requests-reset"
	HeaderInputTokensReset  = "anthropic-ratelimit-input-tokens-reset"
	HeaderOutputTokensReset = "anthropic-ratelimit-output-tokens-reset"
)

type rateLimitBody struct {
	Error *struct {
		ResetsAt *float64 `json:"resetsAt"`
		Metadata *struct {
			ResetsAt *float64 `json:"resetsAt"`
		} `json:"metadata"`
	} `json:"error"`
}

// ResumeAt extracts when the backend will accept requests again from a rate
// limit response. The body fields error.resetsAt and error.metadata.resetsAt
// (epoch seconds) win, then the Retry-After header (seconds or HTTP date),
// then the provider reset headers (RFC 3339). Without any of these the
// result is now+fallback. The second return reports whether the backend
// supplied the time.
func ResumeAt(header http.Header, body []byte, now time.Time, fallback time.Duration) (time.Time, bool) {
	if t, ok := resumeFromBody(body); ok {
		return t, true
	}
	if t, ok := resumeFromHeader(header, now); ok {
		return t, true
	}
	return now.Add(fallback), false
}

func resumeFromBody(body []byte) (time.Time, bool) {
	if len(body) == 0 {
		return time.Time{}, false
	}
	var parsed rateLimitBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		return time.Time{}, false
	}
	epoch := parsed.Error.ResetsAt
	if epoch == nil && parsed.Error.Metadata != nil {
		epoch = parsed.Error.Metadata.ResetsAt
	}
	if epoch == nil || *epoch <= 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*epoch)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true
}

func resumeFromHeader(header http.Header, now time.Time) (time.Time, bool) {
	if header == nil {
		return time.Time{}, false
	}

	if v := strings.TrimSpace(header.Get(HeaderRetryAfter)); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return now.Add(time.Duration(seconds) * time.Second), true
		}
		if t, err := http.ParseTime(v); err == nil {
			return t, true
		}
	}

	for _, name := range []string{HeaderRequestsReset, HeaderInputTokensReset, HeaderOutputTokensReset} {
		if v := strings.TrimSpace(header.Get(name)); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}
