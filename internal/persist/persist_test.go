package persist

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/procurement-watch/internal/store"
	"github.com/jonathan/procurement-watch/internal/types"
)

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func sampleStore() *store.Store {
	s := store.New()
	s.Merge("ted_crypto", types.Notice{Title: "Wallet tracing", URL: "https://ted.europa.eu/n/1", Country: "NL"}, t0)
	s.MarkScanned("ted_crypto", t0)
	s.AppendRun(types.NewRunRecord(t0, t0.Add(time.Minute), []types.SourceOutcome{
		{SourceID: "ted_crypto", Status: types.StatusOK, Pulled: 1, Added: 1},
	}))
	started := t0
	s.LastRunStartedAt = &started
	return s
}

func assertSameStore(t *testing.T, want, got *store.Store) {
	t.Helper()
	require.Len(t, got.Notices, len(want.Notices))
	assert.Equal(t, want.Notices, got.Notices)
	assert.Equal(t, len(want.Index), len(got.Index))
	for k, e := range want.Index {
		assert.True(t, e.FirstSeen.Equal(got.Index[k].FirstSeen))
		assert.True(t, e.LastSeen.Equal(got.Index[k].LastSeen))
	}
	require.Len(t, got.Runs, len(want.Runs))
	assert.Equal(t, want.Runs[0].ID, got.Runs[0].ID)
	require.NotNil(t, got.LastRunStartedAt)
	assert.True(t, want.LastRunStartedAt.Equal(*got.LastRunStartedAt))
	assert.Nil(t, got.RateLimitedUntil)
}

func TestPersisters_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(ctx, filepath.Join(dir, "db", "store.db"))
	require.NoError(t, err)
	defer sqlite.Close()

	persisters := map[string]Persister{
		"file":   NewFileStore(filepath.Join(dir, "nested", "store.json")),
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}

	for name, p := range persisters {
		t.Run(name, func(t *testing.T) {
			_, err := p.Load(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			want := sampleStore()
			require.NoError(t, p.Save(ctx, want))
			// Second save replaces the first
			require.NoError(t, p.Save(ctx, want))

			got, err := p.Load(ctx)
			require.NoError(t, err)
			assertSameStore(t, want, got)
		})
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	for _, content := range []string{"{not json", `{"notices":"nope"}`, `{"version":99}`} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := NewFileStore(path).Load(ctx)
		var corrupt *CorruptError
		require.True(t, errors.As(err, &corrupt), "content %q: %v", content, err)
		assert.Equal(t, path, corrupt.Location)
	}
}

func TestFileStore_EmptyFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	p := NewFileStore(filepath.Join(dir, "store.json"))
	require.NoError(t, p.Save(context.Background(), store.New()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.json", entries[0].Name())
}

func TestLoadOrInit(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)

	t.Run("missing", func(t *testing.T) {
		s, err := LoadOrInit(ctx, NewMemoryStore(), logger)
		require.NoError(t, err)
		assert.Empty(t, s.Notices)
		assert.Empty(t, logs.String())
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.json")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

		s, err := LoadOrInit(ctx, NewFileStore(path), logger)
		require.NoError(t, err)
		assert.Empty(t, s.Notices)
		assert.Contains(t, logs.String(), "starting with an empty store")
	})

	t.Run("existing", func(t *testing.T) {
		m := NewMemoryStore()
		require.NoError(t, m.Save(ctx, sampleStore()))
		s, err := LoadOrInit(ctx, m, logger)
		require.NoError(t, err)
		assert.Len(t, s.Notices, 1)
	})

	t.Run("read failure", func(t *testing.T) {
		dir := t.TempDir()
		// A directory cannot be read as a file
		_, err := LoadOrInit(ctx, NewFileStore(dir), logger)
		assert.Error(t, err)
	})
}

func TestMemoryStore_SaveIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s := sampleStore()
	require.NoError(t, m.Save(ctx, s))

	s.Notices[0].Title = "mutated after save"

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Wallet tracing", got.Notices[0].Title)
	assert.Equal(t, 1, m.Saves())
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Save(ctx, sampleStore()))

	var p Persister = m
	c, ok := p.(Clearer)
	require.True(t, ok)
	require.NoError(t, c.Clear(ctx))

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok = Persister(NewFileStore(t.TempDir() + "/store.json")).(Clearer)
	assert.False(t, ok, "file stores are cleared by saving an empty snapshot")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := Open(ctx, "memory:")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, p)

	p, err = Open(ctx, "sqlite://"+filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, p)
	require.NoError(t, p.Close())

	p, err = Open(ctx, "file:"+filepath.Join(dir, "s.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "s.json"), p.Location())

	p, err = Open(ctx, filepath.Join(dir, "bare.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, p)

	_, err = Open(ctx, "  ")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/.procwatch/store.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".procwatch", "store.json"), got)

	got, err = expandHome("/tmp/x.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.json", got)
}
