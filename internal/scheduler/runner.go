// Package scheduler runs pull runs: every catalog batch is sent to the search
// backend in order, replies are parsed into notices and merged into the
// store, and a run record is appended to the ledger at the end.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/procurement-watch/internal/catalog"
	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/llm"
	"github.com/jonathan/procurement-watch/internal/parsing"
	"github.com/jonathan/procurement-watch/internal/persist"
	"github.com/jonathan/procurement-watch/internal/prompts"
	"github.com/jonathan/procurement-watch/internal/store"
	"github.com/jonathan/procurement-watch/internal/types"
)

// DefaultBatchDelay is the pause between consecutive batches
const DefaultBatchDelay = 5 * time.Second

// Options holds configuration for a Runner
type Options struct {
	BatchDelay       time.Duration
	Cooldown         time.Duration
	RateLimitBackoff time.Duration
	MaxTokens        int
	// SystemPrompt overrides the embedded system prompt
	SystemPrompt string
	Verbose      bool
	Logger       *log.Logger
	OnProgress   ProgressCallback
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

// DefaultOptions returns the production timings
func DefaultOptions() Options {
	return Options{
		BatchDelay:       DefaultBatchDelay,
		Cooldown:         gate.DefaultCooldown,
		RateLimitBackoff: gate.DefaultRateLimitBackoff,
		MaxTokens:        llm.DefaultMaxTokens,
	}
}

// Runner owns the store and executes one pull run at a time. Readers on
// other goroutines use Snapshot; the lock is never held across a backend
// call or the inter-batch pause.
type Runner struct {
	catalog   *catalog.Catalog
	backend   llm.Backend
	persister persist.Persister
	opts      Options
	logger    *log.Logger

	mu       sync.RWMutex
	store    *store.Store
	outcomes map[string]types.SourceOutcome
	running  bool
	cancel   context.CancelFunc
	message  string
	saveErr  error

	subs subscribers
}

// New creates a runner over a loaded store
func New(cat *catalog.Catalog, backend llm.Backend, persister persist.Persister, st *store.Store, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if st == nil {
		st = store.New()
	}

	r := &Runner{
		catalog:   cat,
		backend:   backend,
		persister: persister,
		opts:      opts,
		logger:    logger,
		store:     st,
	}
	r.resetOutcomesLocked()
	return r
}

func (r *Runner) now() time.Time {
	return r.opts.Now()
}

func (r *Runner) verbosef(format string, args ...any) {
	if r.opts.Verbose {
		r.logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Gate reports whether a run could start now
func (r *Runner) Gate() gate.Status {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return gate.Check(r.store.LastRunStartedAt, r.store.RateLimitedUntil, now, r.opts.Cooldown)
}

// Running reports whether a run is active
func (r *Runner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Run is a handle on a pull run started with Start
type Run struct {
	ID   uuid.UUID
	done chan struct{}
	rec  *types.RunRecord
}

// Done is closed when the run has ended and its record is available
func (h *Run) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run ends and returns its record
func (h *Run) Wait() *types.RunRecord {
	<-h.done
	return h.rec
}

// RunAll executes one pull run over every batch. It returns ErrBusy or a
// *gate.BlockedError without side effects when the run cannot start.
// Batch failures are recorded in the run record, not returned; a rate limit
// or cancellation ends the run early with Aborted set.
func (r *Runner) RunAll(ctx context.Context) (*types.RunRecord, error) {
	h, err := r.Start(ctx)
	if err != nil {
		return nil, err
	}
	return h.Wait(), nil
}

// Start is RunAll in the background: the busy and gate checks happen before
// it returns, the batches run on their own goroutine until ctx ends.
func (r *Runner) Start(ctx context.Context) (*Run, error) {
	runCtx, cancel := context.WithCancel(ctx)

	start, err := r.begin(cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	h := &Run{ID: uuid.New(), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		rec := r.execute(ctx, runCtx, h.ID, start)
		r.end()
		h.rec = rec
	}()
	return h, nil
}

// execute walks the batches. ctx is the caller's context, used for saves
// after cancellation; runCtx is cancelled by Stop.
func (r *Runner) execute(ctx, runCtx context.Context, runID uuid.UUID, start time.Time) *types.RunRecord {
	batches := r.catalog.Batches
	total := len(batches)
	r.logger.Printf("[pull] run %s started: %d batches, %d sources", runID, total, len(r.catalog.Sources))
	r.emitProgress(ProgressEvent{Type: EventRunStarted, RunID: runID.String(), Total: total, Message: "Pull started"})

	aborted, reason := false, ""
	for i, batch := range batches {
		if runCtx.Err() != nil {
			aborted, reason = true, msgCancelled
			break
		}

		if i > 0 && r.opts.BatchDelay > 0 {
			msg := fmt.Sprintf("Waiting %s before batch %d/%d: %s...", r.opts.BatchDelay, i+1, total, batch.Label)
			r.setMessage(msg)
			r.emitProgress(ProgressEvent{Type: EventBatchWaiting, RunID: runID.String(), Batch: batch.ID, Index: i + 1, Total: total, Message: msg})
			if err := pause(runCtx, r.opts.BatchDelay); err != nil {
				aborted, reason = true, msgCancelled
				break
			}
		}

		msg := fmt.Sprintf("Batch %d/%d: %s...", i+1, total, batch.Label)
		r.setMessage(msg)
		r.emitProgress(ProgressEvent{Type: EventBatchStarted, RunID: runID.String(), Batch: batch.ID, Index: i + 1, Total: total, Message: msg})

		batchErr := r.runBatch(runCtx, i, start)
		r.save(ctx, runID)

		event := ProgressEvent{
			Type:     EventBatchFinished,
			RunID:    runID.String(),
			Batch:    batch.ID,
			Index:    i + 1,
			Total:    total,
			Message:  fmt.Sprintf("Batch %d/%d: %s done", i+1, total, batch.Label),
			Outcomes: r.batchOutcomes(batch),
		}
		if batchErr != nil {
			event.Message = fmt.Sprintf("Batch %d/%d: %s failed: %s", i+1, total, batch.Label, outcomeMessage(batchErr))
			r.logger.Printf("[pull] %v", batchErr)
		}
		r.emitProgress(event)

		var limited *RateLimitedError
		var transport *TransportError
		switch {
		case errors.As(batchErr, &limited):
			aborted = true
			reason = fmt.Sprintf("Rate limited on batch %d. Retry after %s.", i+1, limited.ResumeAt.Local().Format("15:04"))
			r.emitProgress(ProgressEvent{Type: EventRateLimited, RunID: runID.String(), Batch: batch.ID, Index: i + 1, Total: total, Message: reason})
		case errors.As(batchErr, &transport) && isCancellation(transport.Cause):
			aborted, reason = true, msgCancelled
		}
		if aborted {
			break
		}
	}

	rec := r.finish(runID, start, aborted, reason)
	r.save(ctx, runID)

	r.logger.Printf("[pull] run %s finished: %d added, %d ok, %d errors, aborted=%t",
		runID, rec.TotalAdded, rec.OKCount, rec.ErrCount, rec.Aborted)
	r.emitProgress(ProgressEvent{Type: EventRunFinished, RunID: runID.String(), Total: total, Message: r.currentMessage(), Run: &rec})
	return &rec
}

// begin checks the busy flag and the gate, then arms the run state
func (r *Runner) begin(cancel context.CancelFunc) (time.Time, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return time.Time{}, ErrBusy
	}
	if status := gate.Check(r.store.LastRunStartedAt, r.store.RateLimitedUntil, now, r.opts.Cooldown); status.Blocked {
		return time.Time{}, &gate.BlockedError{Until: status.Until, Reason: status.Reason}
	}

	start := now
	r.running = true
	r.cancel = cancel
	r.saveErr = nil
	r.store.LastRunStartedAt = &start
	r.store.RateLimitedUntil = nil
	r.resetOutcomesLocked()
	return start, nil
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.cancel = nil
}

// finish builds the run record and appends it to the ledger
func (r *Runner) finish(runID uuid.UUID, start time.Time, aborted bool, reason string) types.RunRecord {
	finishedAt := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, o := range r.outcomes {
		if o.Status == types.StatusInFlight {
			o.Status = types.StatusError
			o.Error = msgCancelled
			r.outcomes[id] = o
		}
	}

	rec := types.NewRunRecord(start, finishedAt, r.outcomesLocked())
	rec.ID = runID
	rec.Aborted = aborted
	rec.AbortReason = reason
	r.store.AppendRun(rec)

	switch {
	case aborted && reason != msgCancelled:
		r.message = reason
	case aborted:
		r.message = fmt.Sprintf("Stopped. %d new tenders. (%d OK, %d errors)", rec.TotalAdded, rec.OKCount, rec.ErrCount)
	case rec.TotalAdded > 0:
		r.message = fmt.Sprintf("Done. %d new tenders. (%d OK, %d errors)", rec.TotalAdded, rec.OKCount, rec.ErrCount)
	default:
		r.message = fmt.Sprintf("Done. No new tenders. (%d OK, %d errors)", rec.OKCount, rec.ErrCount)
	}
	return rec
}

// runBatch sends batch i and merges its notices. The returned error
// classifies a batch failure; member outcomes are already updated.
func (r *Runner) runBatch(ctx context.Context, i int, runStart time.Time) error {
	batch := r.catalog.Batches[i]
	r.setStatus(batch.SourceIDs, types.StatusInFlight, "")

	prompt, err := r.catalog.Prompt(batch)
	if err != nil {
		r.setStatus(batch.SourceIDs, types.StatusError, msgPromptUnavailable)
		return fmt.Errorf("batch %s: %w", batch.ID, err)
	}
	system := r.opts.SystemPrompt
	if system == "" {
		system = prompts.System()
	}

	r.verbosef("batch %s: sending %d sources to %s", batch.ID, len(batch.SourceIDs), r.backend.Model())
	resp, err := r.backend.Send(ctx, llm.Request{
		System:    system,
		Prompt:    prompt,
		MaxTokens: r.opts.MaxTokens,
		WebSearch: true,
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		batchErr := &TransportError{Batch: batch.ID, Cause: err}
		r.setStatus(batch.SourceIDs, types.StatusError, outcomeMessage(batchErr))
		return batchErr
	}
	if ctx.Err() != nil {
		r.verbosef("batch %s: reply arrived after stop, discarding", batch.ID)
		batchErr := &TransportError{Batch: batch.ID, Cause: fmt.Errorf("%w: reply discarded", ctx.Err())}
		r.setStatus(batch.SourceIDs, types.StatusError, outcomeMessage(batchErr))
		return batchErr
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resumeAt, fromBackend := gate.ResumeAt(resp.Header, resp.Body, r.now(), r.opts.RateLimitBackoff)
		r.verbosef("batch %s: rate limited until %s (backend supplied: %t)", batch.ID, resumeAt.Format(time.RFC3339), fromBackend)
		r.rateLimited(i, resumeAt)
		return &RateLimitedError{Batch: batch.ID, ResumeAt: resumeAt}
	}

	if !resp.OK() {
		batchErr := &BackendError{Batch: batch.ID, StatusCode: resp.StatusCode}
		r.setStatus(batch.SourceIDs, types.StatusError, outcomeMessage(batchErr))
		return batchErr
	}

	text, err := llm.ExtractText(resp.Body)
	if err != nil {
		batchErr := &MalformedEnvelopeError{Batch: batch.ID, Cause: err}
		r.setStatus(batch.SourceIDs, types.StatusError, outcomeMessage(batchErr))
		return batchErr
	}

	result, err := parsing.Parse(text)
	if err != nil {
		r.verbosef("batch %s: %v", batch.ID, err)
		r.setStatus(batch.SourceIDs, types.StatusError, msgNoStructured)
		return fmt.Errorf("batch %s: %w", batch.ID, err)
	}

	r.merge(batch, result, runStart)
	return nil
}

// merge applies a parsed result to every batch member
func (r *Runner) merge(batch types.Batch, result parsing.Result, runStart time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range batch.SourceIDs {
		notices := parsing.Notices(result, id)
		added := 0
		for _, n := range notices {
			if _, ok := r.store.Merge(id, n, runStart); ok {
				added++
			}
		}
		r.store.MarkScanned(id, runStart)
		r.outcomes[id] = types.SourceOutcome{
			SourceID: id,
			Status:   types.StatusOK,
			Pulled:   len(notices),
			Added:    added,
		}
		r.verbosef("source %s: pulled %d, added %d", id, len(notices), added)
	}
}

// rateLimited marks batch i and every later batch as errored and arms the gate
func (r *Runner) rateLimited(i int, resumeAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for bi, batch := range r.catalog.Batches[i:] {
		msg := msgRateLimitCascade
		if bi == 0 {
			msg = msgRateLimited
		}
		for _, id := range batch.SourceIDs {
			r.outcomes[id] = types.SourceOutcome{SourceID: id, Status: types.StatusError, Error: msg}
		}
	}
	until := resumeAt
	r.store.RateLimitedUntil = &until
}

// Stop cancels the active run. It reports whether a run was active.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Clear empties the store. A persister that implements persist.Clearer drops
// its snapshot; any other is handed the empty snapshot.
func (r *Runner) Clear(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrBusy
	}
	r.store.Reset()
	r.resetOutcomesLocked()
	r.message = ""
	r.mu.Unlock()

	if c, ok := r.persister.(persist.Clearer); ok {
		return r.write(ctx, uuid.Nil, c.Clear)
	}
	return r.save(ctx, uuid.Nil)
}

// save persists a copy of the store. Failures are logged and kept for
// observers; they never stop a run.
func (r *Runner) save(ctx context.Context, runID uuid.UUID) error {
	r.mu.RLock()
	snapshot := r.store.Clone()
	r.mu.RUnlock()

	return r.write(ctx, runID, func(ctx context.Context) error {
		return r.persister.Save(ctx, snapshot)
	})
}

func (r *Runner) write(ctx context.Context, runID uuid.UUID, op func(context.Context) error) error {
	err := op(context.WithoutCancel(ctx))

	r.mu.Lock()
	r.saveErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Printf("[store] save to %s failed: %v", r.persister.Location(), err)
		event := ProgressEvent{Type: EventSaveFailed, Message: fmt.Sprintf("Save failed: %v", err)}
		if runID != uuid.Nil {
			event.RunID = runID.String()
		}
		r.emitProgress(event)
	}
	return err
}

func (r *Runner) setStatus(ids []string, status types.SourceStatus, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.outcomes[id] = types.SourceOutcome{SourceID: id, Status: status, Error: msg}
	}
}

func (r *Runner) setMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = msg
}

func (r *Runner) currentMessage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.message
}

func (r *Runner) batchOutcomes(batch types.Batch) []types.SourceOutcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.SourceOutcome, 0, len(batch.SourceIDs))
	for _, id := range batch.SourceIDs {
		out = append(out, r.outcomes[id])
	}
	return out
}

func (r *Runner) resetOutcomesLocked() {
	r.outcomes = make(map[string]types.SourceOutcome, len(r.catalog.Sources))
	for _, src := range r.catalog.Sources {
		r.outcomes[src.ID] = types.SourceOutcome{SourceID: src.ID, Status: types.StatusWaiting}
	}
}

// outcomesLocked returns the per-source outcomes in catalog order
func (r *Runner) outcomesLocked() []types.SourceOutcome {
	out := make([]types.SourceOutcome, 0, len(r.catalog.Sources))
	for _, src := range r.catalog.Sources {
		out = append(out, r.outcomes[src.ID])
	}
	return out
}

// pause waits for d unless ctx ends first
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
