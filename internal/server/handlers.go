package server

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/scheduler"
	"github.com/jonathan/procurement-watch/internal/store"
	"github.com/jonathan/procurement-watch/internal/types"
)

// DefaultRunsLimit is the page size for GET /runs
const DefaultRunsLimit = 30

// MaxRunsLimit caps the limit query parameter
const MaxRunsLimit = 500

// StatusResponse represents the response for /status
type StatusResponse struct {
	Running       bool                  `json:"running"`
	Message       string                `json:"message"`
	Counts        scheduler.Counts      `json:"counts"`
	Sources       []types.SourceOutcome `json:"sources"`
	Blocked       bool                  `json:"blocked"`
	BlockedReason gate.Reason           `json:"blocked_reason,omitempty"`
	BlockedUntil  *time.Time            `json:"blocked_until,omitempty"`
	RetryAfter    int                   `json:"retry_after,omitempty"`
	Countdown     string                `json:"countdown,omitempty"`
	NoticeCount   int                   `json:"notice_count"`
	NewCount      int                   `json:"new_count"`
	LastRun       *types.RunRecord      `json:"last_run,omitempty"`
	SaveError     string                `json:"save_error,omitempty"`
	At            time.Time             `json:"at"`
}

// NoticesResponse represents the response for /notices
type NoticesResponse struct {
	Count   int                  `json:"count"`
	Notices []types.TaggedNotice `json:"notices"`
}

// RunsResponse represents the response for /runs
type RunsResponse struct {
	Source string            `json:"source"` // "ledger" or "archive"
	Runs   []types.RunRecord `json:"runs"`
	Total  int               `json:"total"`
}

// SourceResponse is one catalog source with its batch and last scan
type SourceResponse struct {
	types.Source
	Batch         string     `json:"batch"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
}

// PullResponse represents the response for POST /pull
type PullResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// PullResult is the final event of POST /pull/stream
type PullResult struct {
	RunID   string           `json:"run_id"`
	Status  string           `json:"status"` // "completed" or "aborted"
	Message string           `json:"message"`
	Run     *types.RunRecord `json:"run,omitempty"`
}

// BlockedResponse is the 429 body when the pull gate is closed
type BlockedResponse struct {
	Error        string      `json:"error"`
	Reason       gate.Reason `json:"reason"`
	BlockedUntil time.Time   `json:"blocked_until"`
	RetryAfter   int         `json:"retry_after"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns the observer snapshot
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	obs := s.runner.Snapshot()
	now := s.now()

	resp := StatusResponse{
		Running:     obs.Running,
		Message:     obs.Message,
		Counts:      obs.Counts,
		Sources:     obs.Sources,
		Blocked:     obs.Gate.Blocked,
		NoticeCount: len(obs.Store.Notices),
		NewCount:    obs.Store.NewCount(now),
		SaveError:   obs.SaveError,
		At:          obs.At,
	}
	if obs.Gate.Blocked {
		until := obs.Gate.Until
		resp.BlockedUntil = &until
		resp.BlockedReason = obs.Gate.Reason
		resp.RetryAfter = retryAfterSeconds(obs.Gate.Remaining(now))
		resp.Countdown = gate.FormatCountdown(obs.Gate.Remaining(now))
	}
	if last, ok := obs.Store.LatestRun(); ok {
		resp.LastRun = &last
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleNotices lists tagged notices, filtered and newest first
func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	filter, err := s.parseFilter(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	obs := s.runner.Snapshot()
	notices := filter.Apply(obs.Store.Tagged(s.catalog, s.now()))
	s.jsonResponse(w, http.StatusOK, NoticesResponse{Count: len(notices), Notices: notices})
}

func (s *Server) parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	filter := store.Filter{Query: q.Get("q")}

	if region := q.Get("region"); region != "" {
		filter.Region = types.Region(region)
		if !slices.Contains(s.catalog.Regions(), filter.Region) {
			return filter, &ErrValidation{Field: "region", Message: fmt.Sprintf("unknown region %q", region)}
		}
	}
	if category := q.Get("category"); category != "" {
		filter.Category = types.Category(category)
		if !slices.Contains(s.catalog.Categories(), filter.Category) {
			return filter, &ErrValidation{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
		}
	}
	if newOnly := q.Get("new"); newOnly != "" {
		v, err := strconv.ParseBool(newOnly)
		if err != nil {
			return filter, &ErrValidation{Field: "new", Message: "must be a boolean"}
		}
		filter.NewOnly = v
	}
	return filter, nil
}

// handleRuns lists run records, newest first. The archive is used when
// configured since it is not capped.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > MaxRunsLimit {
			err := &ErrValidation{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxRunsLimit)}
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		limit = v
	}

	if s.archive != nil {
		runs, err := s.archive.ListRuns(r.Context(), limit)
		if err != nil {
			log.Printf("[server] listing archived runs failed: %v", err)
			s.errorResponse(w, http.StatusInternalServerError, "Failed to list runs: "+err.Error())
			return
		}
		total, err := s.archive.CountRuns(r.Context())
		if err != nil {
			log.Printf("[server] counting archived runs failed: %v", err)
			s.errorResponse(w, http.StatusInternalServerError, "Failed to count runs: "+err.Error())
			return
		}
		s.jsonResponse(w, http.StatusOK, RunsResponse{Source: "archive", Runs: runs, Total: total})
		return
	}

	// the ledger is kept newest first
	obs := s.runner.Snapshot()
	runs := obs.Store.Runs[:min(limit, len(obs.Store.Runs))]
	s.jsonResponse(w, http.StatusOK, RunsResponse{Source: "ledger", Runs: runs, Total: len(obs.Store.Runs)})
}

// handleSources lists the catalog with each source's batch and last scan
func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	batchOf := make(map[string]string, len(s.catalog.Sources))
	for _, b := range s.catalog.Batches {
		for _, id := range b.SourceIDs {
			batchOf[id] = b.ID
		}
	}

	obs := s.runner.Snapshot()
	out := make([]SourceResponse, 0, len(s.catalog.Sources))
	for _, src := range s.catalog.Sources {
		item := SourceResponse{Source: src, Batch: batchOf[src.ID]}
		if at, ok := obs.Store.LastScannedAt[src.ID]; ok {
			scanned := at
			item.LastScannedAt = &scanned
		}
		out = append(out, item)
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handlePull starts a run in the background
func (s *Server) handlePull(w http.ResponseWriter, _ *http.Request) {
	h, err := s.runner.Start(s.baseCtx)
	if err != nil {
		s.startError(w, err)
		return
	}

	s.pulls.Add(1)
	go func() {
		defer s.pulls.Done()
		rec := h.Wait()
		log.Printf("[server] pull %s finished: %d added, aborted=%t", h.ID, rec.TotalAdded, rec.Aborted)
	}()

	log.Printf("[server] pull %s started", h.ID)
	s.jsonResponse(w, http.StatusAccepted, PullResponse{RunID: h.ID.String(), Status: "started"})
}

// handlePullStream starts a run and streams its progress via SSE. The run
// is bound to the request: a client disconnect stops it.
func (s *Server) handlePullStream(w http.ResponseWriter, r *http.Request) {
	events, unsubscribe := s.runner.Subscribe(64)
	defer unsubscribe()

	h, err := s.runner.Start(r.Context())
	if err != nil {
		s.startError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.runner.Stop()
		h.Wait()
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[server] streaming pull %s", h.ID)
	forward := func(event scheduler.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			log.Printf("Error writing SSE event: %v", err)
		}
	}

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for done := false; !done; {
		select {
		case event := <-events:
			forward(event)
		case <-heartbeat.C:
			if err := sse.Heartbeat(); err != nil {
				log.Printf("[server] pull stream %s heartbeat failed: %v", h.ID, err)
			}
		case <-h.Done():
			done = true
		}
	}
	for drained := false; !drained; {
		select {
		case event := <-events:
			forward(event)
		default:
			drained = true
		}
	}

	rec := h.Wait()
	result := PullResult{RunID: h.ID.String(), Status: "completed", Message: s.runner.Snapshot().Message, Run: rec}
	if rec.Aborted {
		result.Status = "aborted"
	}
	sse.WriteComplete(result)
}

// startError maps a Start failure to a response
func (s *Server) startError(w http.ResponseWriter, err error) {
	var blocked *gate.BlockedError
	if errors.As(err, &blocked) {
		retry := retryAfterSeconds(blocked.RetryAfter(s.now()))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		s.jsonResponse(w, HTTPStatus(err), BlockedResponse{
			Error:        err.Error(),
			Reason:       blocked.Reason,
			BlockedUntil: blocked.Until,
			RetryAfter:   retry,
		})
		return
	}
	s.errorResponse(w, HTTPStatus(err), err.Error())
}

// handleStop cancels the active run
func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	if !s.runner.Stop() {
		err := &ErrNotRunning{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// handleClear empties the store
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Clear(r.Context()); err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Store cleared but not saved: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// retryAfterSeconds rounds up so clients never retry early
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
