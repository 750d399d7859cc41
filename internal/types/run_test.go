package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewRunRecord_Aggregates(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(40 * time.Second)

	outcomes := []SourceOutcome{
		{SourceID: "ted_crypto", Status: StatusOK, Pulled: 4, Added: 3},
		{SourceID: "ted_seizure", Status: StatusOK, Pulled: 1, Added: 0},
		{SourceID: "uk_crypto", Status: StatusError, Error: "HTTP 500"},
		{SourceID: "uk_insider", Status: StatusWaiting},
	}

	rec := NewRunRecord(start, end, outcomes)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, start, rec.StartedAt)
	assert.Equal(t, end, rec.FinishedAt)
	assert.Equal(t, 3, rec.TotalAdded)
	assert.Equal(t, 2, rec.OKCount)
	assert.Equal(t, 1, rec.ErrCount)
	assert.Len(t, rec.Outcomes, 4)
}

func TestNewRunRecord_CopiesOutcomes(t *testing.T) {
	outcomes := []SourceOutcome{{SourceID: "a", Status: StatusOK}}
	rec := NewRunRecord(time.Now(), time.Now(), outcomes)

	outcomes[0].Status = StatusError
	assert.Equal(t, StatusOK, rec.Outcomes[0].Status)
}

func TestNotice_HasIdentity(t *testing.T) {
	tests := []struct {
		name   string
		notice Notice
		want   bool
	}{
		{"title only", Notice{Title: "T"}, true},
		{"url only", Notice{URL: "https://ted.europa.eu/1"}, true},
		{"notice id only", Notice{NoticeID: "2025/S 001-000001"}, false},
		{"empty", Notice{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.notice.HasIdentity())
		})
	}
}
