package gate

import (
	"fmt"
	"time"
)

// BlockedError is returned when a run is requested while the gate is closed
type BlockedError struct {
	Until  time.Time
	Reason Reason
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("run blocked (%s) until %s", e.Reason, e.Until.Format(time.RFC3339))
}

// RetryAfter returns the wait as of now, never negative
func (e *BlockedError) RetryAfter(now time.Time) time.Duration {
	if e.Until.After(now) {
		return e.Until.Sub(now)
	}
	return 0
}
