// Package store provides the notice store aggregate: deduplicated notices with
// first/last-seen tracking, the bounded run ledger and gate timestamps.
package store

import (
	"time"

	"github.com/jonathan/procurement-watch/internal/types"
)

// SchemaVersion is the version written into persisted snapshots
const SchemaVersion = 1

// RecencyWindow is how long after first sighting a notice counts as new
const RecencyWindow = 24 * time.Hour

// Store is the root aggregate persisted as a single snapshot. It is owned by
// one scheduler at a time and is not safe for concurrent mutation.
type Store struct {
	Version          int                         `json:"version"`
	Notices          []types.Notice              `json:"notices"`
	Index            map[string]types.IndexEntry `json:"index"`
	Runs             []types.RunRecord           `json:"runs"`
	LastScannedAt    map[string]time.Time        `json:"last_scanned_at"`
	LastRunStartedAt *time.Time                  `json:"last_run_started_at,omitempty"`
	RateLimitedUntil *time.Time                  `json:"rate_limited_until,omitempty"`
}

// New returns an empty store
func New() *Store {
	return &Store{
		Version:       SchemaVersion,
		Notices:       []types.Notice{},
		Index:         make(map[string]types.IndexEntry),
		Runs:          []types.RunRecord{},
		LastScannedAt: make(map[string]time.Time),
	}
}

// Normalize fills nil collections after decoding a snapshot written by an
// older version or by hand.
func (s *Store) Normalize() {
	if s.Notices == nil {
		s.Notices = []types.Notice{}
	}
	if s.Index == nil {
		s.Index = make(map[string]types.IndexEntry)
	}
	if s.Runs == nil {
		s.Runs = []types.RunRecord{}
	}
	if s.LastScannedAt == nil {
		s.LastScannedAt = make(map[string]time.Time)
	}
	if s.Version == 0 {
		s.Version = SchemaVersion
	}
}

// Merge adds a notice for a source unless its stable key is already known.
// A known key only has its LastSeen moved to now; stored content is never
// overwritten. Returns the key and whether the notice was added.
func (s *Store) Merge(sourceID string, n types.Notice, now time.Time) (string, bool) {
	key := StableKey(sourceID, n)
	if entry, ok := s.Index[key]; ok {
		if now.After(entry.LastSeen) {
			entry.LastSeen = now
			s.Index[key] = entry
		}
		return key, false
	}

	s.Index[key] = types.IndexEntry{FirstSeen: now, LastSeen: now}
	n.SourceID = sourceID
	n.Key = key
	s.Notices = append(s.Notices, n)
	return key, true
}

// IsNew reports whether a key is unseen or was first seen within RecencyWindow
func (s *Store) IsNew(key string, now time.Time) bool {
	entry, ok := s.Index[key]
	if !ok || entry.FirstSeen.IsZero() {
		return true
	}
	return now.Sub(entry.FirstSeen) < RecencyWindow
}

// MarkScanned records the run timestamp at which a source was last scanned
func (s *Store) MarkScanned(sourceID string, at time.Time) {
	s.LastScannedAt[sourceID] = at
}

// Reset empties the store, dropping every notice, run and gate timestamp
func (s *Store) Reset() {
	*s = *New()
}

// Clone returns a deep copy safe to hand to readers
func (s *Store) Clone() *Store {
	out := &Store{
		Version:       s.Version,
		Notices:       append([]types.Notice(nil), s.Notices...),
		Index:         make(map[string]types.IndexEntry, len(s.Index)),
		Runs:          make([]types.RunRecord, len(s.Runs)),
		LastScannedAt: make(map[string]time.Time, len(s.LastScannedAt)),
	}
	if out.Notices == nil {
		out.Notices = []types.Notice{}
	}
	for k, v := range s.Index {
		out.Index[k] = v
	}
	for i, r := range s.Runs {
		r.Outcomes = append([]types.SourceOutcome(nil), r.Outcomes...)
		out.Runs[i] = r
	}
	for k, v := range s.LastScannedAt {
		out.LastScannedAt[k] = v
	}
	if s.LastRunStartedAt != nil {
		t := *s.LastRunStartedAt
		out.LastRunStartedAt = &t
	}
	if s.RateLimitedUntil != nil {
		t := *s.RateLimitedUntil
		out.RateLimitedUntil = &t
	}
	return out
}

// NewCount returns how many stored notices currently count as new
func (s *Store) NewCount(now time.Time) int {
	count := 0
	for _, n := range s.Notices {
		if s.IsNew(n.Key, now) {
			count++
		}
	}
	return count
}
