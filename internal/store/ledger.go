package store

import "github.com/jonathan/procurement-watch/internal/types"

// MaxRuns is the number of run records retained in the ledger
const MaxRuns = 30

// AppendRun prepends a run record, dropping the oldest beyond MaxRuns
func (s *Store) AppendRun(rec types.RunRecord) {
	runs := make([]types.RunRecord, 0, min(len(s.Runs)+1, MaxRuns))
	runs = append(runs, rec)
	for _, r := range s.Runs {
		if len(runs) == MaxRuns {
			break
		}
		runs = append(runs, r)
	}
	s.Runs = runs
}

// LatestRun returns the most recent run record, if any
func (s *Store) LatestRun() (types.RunRecord, bool) {
	if len(s.Runs) == 0 {
		return types.RunRecord{}, false
	}
	return s.Runs[0], true
}
