package scheduler

import (
	"sync"

	"github.com/jonathan/procurement-watch/internal/types"
)

// Progress event types
const (
	EventRunStarted    = "run_started"
	EventBatchWaiting  = "batch_waiting"
	EventBatchStarted  = "batch_started"
	EventBatchFinished = "batch_finished"
	EventRateLimited   = "rate_limited"
	EventSaveFailed    = "save_failed"
	EventRunFinished   = "run_finished"
)

// ProgressEvent represents a progress update during a pull run
type ProgressEvent struct {
	Type     string                `json:"type"`
	RunID    string                `json:"run_id,omitempty"`
	Batch    string                `json:"batch,omitempty"`
	Index    int                   `json:"index,omitempty"`
	Total    int                   `json:"total,omitempty"`
	Message  string                `json:"message"`
	Outcomes []types.SourceOutcome `json:"outcomes,omitempty"`
	Run      *types.RunRecord      `json:"run,omitempty"`
}

// ProgressCallback is called when run progress occurs. It is invoked from the
// run goroutine and must not call back into the Runner's mutating methods.
type ProgressCallback func(event ProgressEvent)

type subscribers struct {
	mu   sync.Mutex
	next int
	chs  map[int]chan ProgressEvent
}

// Subscribe registers a listener for progress events of every later run.
// Sends never block: a listener whose buffer is full misses events. The
// returned func unregisters and closes the channel.
func (r *Runner) Subscribe(buffer int) (<-chan ProgressEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ProgressEvent, buffer)

	r.subs.mu.Lock()
	if r.subs.chs == nil {
		r.subs.chs = make(map[int]chan ProgressEvent)
	}
	id := r.subs.next
	r.subs.next++
	r.subs.chs[id] = ch
	r.subs.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subs.mu.Lock()
			delete(r.subs.chs, id)
			r.subs.mu.Unlock()
			close(ch)
		})
	}
}

// emitProgress calls the progress callback if configured and fans the event
// out to subscribers
func (r *Runner) emitProgress(event ProgressEvent) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(event)
	}

	r.subs.mu.Lock()
	defer r.subs.mu.Unlock()
	for _, ch := range r.subs.chs {
		select {
		case ch <- event:
		default:
		}
	}
}
