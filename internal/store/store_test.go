package store

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/procurement-watch/internal/types"
)

var t0 = time.Date(2025, 5, 12, 9, 30, 0, 0, time.UTC)

func TestMerge_NewNotice(t *testing.T) {
	s := New()

	key, added := s.Merge("ted_crypto", types.Notice{Title: "Blockchain analytics", URL: "https://ted.europa.eu/n/1"}, t0)

	assert.True(t, added)
	assert.Equal(t, "ted_crypto|https:__ted.europa.eu_n_1", key)
	require.Len(t, s.Notices, 1)
	assert.Equal(t, "ted_crypto", s.Notices[0].SourceID)
	assert.Equal(t, key, s.Notices[0].Key)
	assert.Equal(t, types.IndexEntry{FirstSeen: t0, LastSeen: t0}, s.Index[key])
}

func TestMerge_Idempotent(t *testing.T) {
	s := New()
	n := types.Notice{Title: "Crypto custody", NoticeID: "2025/S 090-123456"}

	key1, added1 := s.Merge("uk_crypto", n, t0)
	later := t0.Add(6 * time.Hour)
	n.Buyer = "HM Treasury"
	key2, added2 := s.Merge("uk_crypto", n, later)

	assert.True(t, added1)
	assert.False(t, added2)
	assert.Equal(t, key1, key2)
	require.Len(t, s.Notices, 1)
	assert.Empty(t, s.Notices[0].Buyer, "first write wins for content")
	assert.Equal(t, t0, s.Index[key1].FirstSeen)
	assert.Equal(t, later, s.Index[key1].LastSeen)
}

func TestMerge_LastSeenNeverMovesBackwards(t *testing.T) {
	s := New()
	n := types.Notice{Title: "SIEM"}

	key, _ := s.Merge("uk_insider", n, t0)
	s.Merge("uk_insider", n, t0.Add(-time.Hour))

	assert.Equal(t, t0, s.Index[key].LastSeen)
	assert.False(t, s.Index[key].LastSeen.Before(s.Index[key].FirstSeen))
}

func TestMerge_SameContentDifferentSources(t *testing.T) {
	s := New()
	n := types.Notice{Title: "Asset seizure services", URL: "https://sam.gov/opp/1"}

	k1, a1 := s.Merge("sam_crypto", n, t0)
	k2, a2 := s.Merge("sam_seizure", n, t0)

	assert.True(t, a1)
	assert.True(t, a2)
	assert.NotEqual(t, k1, k2)
	assert.Len(t, s.Notices, 2)
}

func TestStableKey(t *testing.T) {
	a := types.Notice{NoticeID: "123-2025", Title: "A", Buyer: "X", Date: "2025-01-01"}
	b := types.Notice{NoticeID: "123-2025", Title: "B", URL: "https://other", Country: "DK"}

	assert.Equal(t, StableKey("dk_crypto", a), StableKey("dk_crypto", b))
	assert.NotEqual(t, StableKey("dk_crypto", a), StableKey("no_crypto", a))
}

func TestStableKey_Precedence(t *testing.T) {
	assert.Equal(t, "s|id", StableKey("s", types.Notice{NoticeID: "id", URL: "u", Title: "t"}))
	assert.Equal(t, "s|u", StableKey("s", types.Notice{URL: "u", Title: "t"}))
	assert.Equal(t, "s|t", StableKey("s", types.Notice{Title: "t"}))
	assert.Equal(t, "s|", StableKey("s", types.Notice{}))
}

func TestStableKey_Normalization(t *testing.T) {
	key := StableKey("s", types.Notice{Title: "Tender \"X\" for 'Y'\ta/b\\c"})
	assert.Equal(t, "s|Tender__X__for__Y__a_b_c", key)
}

func TestStableKey_Truncation(t *testing.T) {
	long := strings.Repeat("é", 200)
	key := StableKey("s", types.Notice{Title: long})

	ident := strings.TrimPrefix(key, "s|")
	assert.Equal(t, MaxKeyLength, len([]rune(ident)))
}

func TestIsNew(t *testing.T) {
	s := New()
	key, _ := s.Merge("ee_crypto", types.Notice{Title: "Crypto tool"}, t0)

	assert.True(t, s.IsNew(key, t0.Add(23*time.Hour)))
	assert.False(t, s.IsNew(key, t0.Add(24*time.Hour)))
	assert.True(t, s.IsNew("ee_crypto|unknown", t0.Add(1000*time.Hour)))
	assert.Equal(t, 1, s.NewCount(t0))
	assert.Equal(t, 0, s.NewCount(t0.Add(48*time.Hour)))
}

func TestAppendRun_Bounded(t *testing.T) {
	s := New()
	for i := 0; i < 35; i++ {
		rec := types.RunRecord{StartedAt: t0.Add(time.Duration(i) * time.Hour), TotalAdded: i}
		s.AppendRun(rec)
	}

	require.Len(t, s.Runs, MaxRuns)
	for i, r := range s.Runs {
		assert.Equal(t, 34-i, r.TotalAdded, "run at position %d", i)
	}
	latest, ok := s.LatestRun()
	require.True(t, ok)
	assert.Equal(t, 34, latest.TotalAdded)
}

func TestLatestRun_Empty(t *testing.T) {
	_, ok := New().LatestRun()
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	s := New()
	s.Merge("a", types.Notice{Title: "x"}, t0)
	s.AppendRun(types.RunRecord{})
	s.MarkScanned("a", t0)
	s.LastRunStartedAt = &t0
	s.RateLimitedUntil = &t0

	s.Reset()

	assert.Empty(t, s.Notices)
	assert.Empty(t, s.Index)
	assert.Empty(t, s.Runs)
	assert.Empty(t, s.LastScannedAt)
	assert.Nil(t, s.LastRunStartedAt)
	assert.Nil(t, s.RateLimitedUntil)
}

func TestClone_IsDeep(t *testing.T) {
	s := New()
	s.Merge("a", types.Notice{Title: "x"}, t0)
	s.AppendRun(types.RunRecord{Outcomes: []types.SourceOutcome{{SourceID: "a", Status: types.StatusOK}}})
	s.LastRunStartedAt = &t0

	c := s.Clone()
	s.Merge("a", types.Notice{Title: "y"}, t0)
	s.Runs[0].Outcomes[0].Status = types.StatusError
	*s.LastRunStartedAt = t0.Add(time.Hour)

	assert.Len(t, c.Notices, 1)
	assert.Len(t, c.Index, 1)
	assert.Equal(t, types.StatusOK, c.Runs[0].Outcomes[0].Status)
	assert.Equal(t, t0, *c.LastRunStartedAt)
}

func TestNormalize(t *testing.T) {
	s := &Store{}
	s.Normalize()

	assert.Equal(t, SchemaVersion, s.Version)
	assert.NotNil(t, s.Notices)
	assert.NotNil(t, s.Index)
	assert.NotNil(t, s.Runs)
	assert.NotNil(t, s.LastScannedAt)
}

type lookup map[string]types.Source

func (l lookup) Source(id string) (types.Source, bool) {
	s, ok := l[id]
	return s, ok
}

func TestTaggedAndFilter(t *testing.T) {
	l := lookup{
		"ted_crypto": {ID: "ted_crypto", Label: "TED - Crypto", Region: types.RegionEU, Category: types.CategoryCrypto},
		"uk_insider": {ID: "uk_insider", Label: "UK - Insider", Region: types.RegionUK, Category: types.CategoryInsiderThreat},
	}

	s := New()
	s.Merge("ted_crypto", types.Notice{Title: "Blockchain forensics", Buyer: "Europol", Date: "2025-04-01"}, t0.Add(-72*time.Hour))
	s.Merge("uk_insider", types.Notice{Title: "SIEM platform", Buyer: "MoD", Date: "2025-05-10"}, t0)
	s.Merge("gone_source", types.Notice{Title: "Legacy", Date: "2024-01-01"}, t0)

	tagged := s.Tagged(l, t0)
	require.Len(t, tagged, 3)
	assert.Equal(t, "gone_source", tagged[2].Label)

	all := Filter{}.Apply(tagged)
	require.Len(t, all, 3)
	assert.Equal(t, "SIEM platform", all[0].Title, "sorted newest date first")

	eu := Filter{Region: types.RegionEU}.Apply(tagged)
	require.Len(t, eu, 1)
	assert.Equal(t, "Europol", eu[0].Buyer)
	assert.False(t, eu[0].IsNew)

	fresh := Filter{NewOnly: true, Category: types.CategoryInsiderThreat}.Apply(tagged)
	require.Len(t, fresh, 1)
	assert.True(t, fresh[0].IsNew)

	byLabel := Filter{Query: "ted - crypto"}.Apply(tagged)
	assert.Len(t, byLabel, 1)

	none := Filter{Query: "nothing matches"}.Apply(tagged)
	assert.Empty(t, none)
}

func ExampleStableKey() {
	fmt.Println(StableKey("ted_crypto", types.Notice{NoticeID: "2025/S 012-034567"}))
	// Output: ted_crypto|2025_S_012-034567
}
