package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/procurement-watch/internal/catalog"
	"github.com/jonathan/procurement-watch/internal/llm"
	"github.com/jonathan/procurement-watch/internal/persist"
	"github.com/jonathan/procurement-watch/internal/store"
	"github.com/jonathan/procurement-watch/internal/types"
)

// reply is one scripted backend answer
type reply struct {
	resp *llm.Response
	err  error
	// block waits for the request context to end before answering
	block bool
	// hold waits for the channel to close, ignoring the request context
	hold chan struct{}
}

type fakeBackend struct {
	mu       sync.Mutex
	replies  []reply
	requests []llm.Request
	started  chan struct{}
}

func newFakeBackend(replies ...reply) *fakeBackend {
	return &fakeBackend{replies: replies, started: make(chan struct{}, 16)}
}

func (f *fakeBackend) Send(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	var r reply
	if idx < len(f.replies) {
		r = f.replies[idx]
	} else {
		r = reply{resp: okResponse(`{}`)}
	}
	f.mu.Unlock()

	f.started <- struct{}{}
	if r.block {
		<-ctx.Done()
		return nil, fmt.Errorf("send request: %w", ctx.Err())
	}
	if r.hold != nil {
		<-r.hold
	}
	return r.resp, r.err
}

func (f *fakeBackend) Model() string { return "fake-model" }
func (f *fakeBackend) Close() error  { return nil }

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// okResponse wraps model text in a message envelope
func okResponse(text string) *llm.Response {
	body, _ := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return &llm.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}
}

func statusResponse(code int, body string) *llm.Response {
	return &llm.Response{StatusCode: code, Header: http.Header{}, Body: []byte(body)}
}

// failingPersister fails every save
type failingPersister struct{}

func (failingPersister) Load(context.Context) (*store.Store, error) { return nil, errors.New("unavailable") }
func (failingPersister) Save(context.Context, *store.Store) error   { return errors.New("disk full") }
func (failingPersister) Location() string                           { return "failing:" }
func (failingPersister) Close() error                               { return nil }

// saveOnlyPersister exposes a memory store without its Clear method
type saveOnlyPersister struct {
	mem *persist.MemoryStore
}

func (p saveOnlyPersister) Load(ctx context.Context) (*store.Store, error) { return p.mem.Load(ctx) }
func (p saveOnlyPersister) Save(ctx context.Context, s *store.Store) error { return p.mem.Save(ctx, s) }
func (p saveOnlyPersister) Location() string                              { return p.mem.Location() }
func (p saveOnlyPersister) Close() error                                  { return nil }

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fourBatchCatalog has two sources in each of four batches
func fourBatchCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var sources []types.Source
	var batches []types.Batch
	promptKeys := []string{"batch-eu", "batch-uk", "batch-nordics", "batch-baltics_us"}
	for b := 1; b <= 4; b++ {
		batch := types.Batch{ID: fmt.Sprintf("b%d", b), Label: fmt.Sprintf("Batch %d", b), PromptKey: promptKeys[b-1]}
		for s := 1; s <= 2; s++ {
			id := fmt.Sprintf("b%d_s%d", b, s)
			sources = append(sources, types.Source{ID: id, Label: id, Region: types.RegionEU, Category: types.CategoryCrypto})
			batch.SourceIDs = append(batch.SourceIDs, id)
		}
		batches = append(batches, batch)
	}
	cat, err := catalog.New(sources, batches)
	require.NoError(t, err)
	return cat
}

func singleSourceCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]types.Source{{ID: "s1", Label: "Source one", Region: types.RegionUK, Category: types.CategoryInsiderThreat}},
		[]types.Batch{{ID: "b1", Label: "UK", SourceIDs: []string{"s1"}, PromptKey: "batch-uk"}},
	)
	require.NoError(t, err)
	return cat
}
