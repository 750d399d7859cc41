package scheduler

import (
	"time"

	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/store"
	"github.com/jonathan/procurement-watch/internal/types"
)

// Counts tallies per-source statuses
type Counts struct {
	OK       int `json:"ok"`
	Error    int `json:"error"`
	InFlight int `json:"in_flight"`
	Waiting  int `json:"waiting"`
}

// Observation is a consistent copy of the runner state for readers
type Observation struct {
	Running   bool                  `json:"running"`
	Message   string                `json:"message"`
	Sources   []types.SourceOutcome `json:"sources"`
	Counts    Counts                `json:"counts"`
	Gate      gate.Status           `json:"-"`
	SaveError string                `json:"save_error,omitempty"`
	Store     *store.Store          `json:"-"`
	At        time.Time             `json:"at"`
}

// Snapshot returns a deep copy of the runner state
func (r *Runner) Snapshot() Observation {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	obs := Observation{
		Running: r.running,
		Message: r.message,
		Sources: r.outcomesLocked(),
		Gate:    gate.Check(r.store.LastRunStartedAt, r.store.RateLimitedUntil, now, r.opts.Cooldown),
		Store:   r.store.Clone(),
		At:      now,
	}
	if r.saveErr != nil {
		obs.SaveError = r.saveErr.Error()
	}
	for _, o := range obs.Sources {
		switch o.Status {
		case types.StatusOK:
			obs.Counts.OK++
		case types.StatusError:
			obs.Counts.Error++
		case types.StatusInFlight:
			obs.Counts.InFlight++
		default:
			obs.Counts.Waiting++
		}
	}
	return obs
}
