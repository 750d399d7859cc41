package store

import (
	"sort"
	"strings"
	"time"

	"github.com/jonathan/procurement-watch/internal/types"
)

// SourceLookup resolves catalog data for a source id
type SourceLookup interface {
	Source(id string) (types.Source, bool)
}

// Filter selects tagged notices for listing
type Filter struct {
	Query    string
	Region   types.Region
	Category types.Category
	NewOnly  bool
}

// Tagged returns every stored notice enriched with region, category, label
// and the recency flag as of now. Notices from sources unknown to the lookup
// keep their source id as label.
func (s *Store) Tagged(lookup SourceLookup, now time.Time) []types.TaggedNotice {
	out := make([]types.TaggedNotice, 0, len(s.Notices))
	for _, n := range s.Notices {
		t := types.TaggedNotice{Notice: n, Label: n.SourceID, IsNew: s.IsNew(n.Key, now)}
		if src, ok := lookup.Source(n.SourceID); ok {
			t.Region = src.Region
			t.Category = src.Category
			t.Label = src.Label
		}
		if entry, ok := s.Index[n.Key]; ok {
			t.FirstSeen = entry.FirstSeen
			t.LastSeen = entry.LastSeen
		}
		out = append(out, t)
	}
	return out
}

// Apply filters tagged notices and sorts them by date, newest first.
// Query matching is case-insensitive over title, buyer, country, notice id,
// url and source label.
func (f Filter) Apply(notices []types.TaggedNotice) []types.TaggedNotice {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]types.TaggedNotice, 0, len(notices))
	for _, n := range notices {
		if q != "" {
			hay := strings.ToLower(strings.Join([]string{n.Title, n.Buyer, n.Country, n.NoticeID, n.URL, n.Label}, " "))
			if !strings.Contains(hay, q) {
				continue
			}
		}
		if f.Region != "" && n.Region != f.Region {
			continue
		}
		if f.Category != "" && n.Category != f.Category {
			continue
		}
		if f.NewOnly && !n.IsNew {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}
