package types

import (
	"time"

	"github.com/google/uuid"
)

// SourceStatus is the state of a source within a run
type SourceStatus string

// SourceStatus constants
const (
	StatusWaiting  SourceStatus = "waiting"
	StatusInFlight SourceStatus = "in_flight"
	StatusOK       SourceStatus = "ok"
	StatusError    SourceStatus = "error"
)

// SourceOutcome is the result of querying one source during a run
type SourceOutcome struct {
	SourceID string       `json:"source_id"`
	Status   SourceStatus `json:"status"`
	Pulled   int          `json:"pulled"`
	Added    int          `json:"added"`
	Error    string       `json:"error,omitempty"`
}

// RunRecord summarizes one completed or aborted run. It is immutable once
// appended to the ledger.
type RunRecord struct {
	ID          uuid.UUID       `json:"id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Outcomes    []SourceOutcome `json:"outcomes"`
	TotalAdded  int             `json:"total_added"`
	OKCount     int             `json:"ok_count"`
	ErrCount    int             `json:"err_count"`
	Aborted     bool            `json:"aborted,omitempty"`
	AbortReason string          `json:"abort_reason,omitempty"`
}

// NewRunRecord aggregates per-source outcomes into a run record
func NewRunRecord(startedAt, finishedAt time.Time, outcomes []SourceOutcome) RunRecord {
	rec := RunRecord{
		ID:         uuid.New(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Outcomes:   append([]SourceOutcome(nil), outcomes...),
	}
	for _, o := range outcomes {
		rec.TotalAdded += o.Added
		switch o.Status {
		case StatusOK:
			rec.OKCount++
		case StatusError:
			rec.ErrCount++
		}
	}
	return rec
}
