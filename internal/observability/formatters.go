// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/procurement-watch/internal/catalog"
	"github.com/jonathan/procurement-watch/internal/gate"
	"github.com/jonathan/procurement-watch/internal/scheduler"
	"github.com/jonathan/procurement-watch/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// timeLayout is used for every timestamp the printer renders
	timeLayout = "2006-01-02 15:04"
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs the totals of a finished run and the sources that failed.
func (p *Printer) PrintRunSummary(rec *types.RunRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", rec.ID))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", rec.StartedAt.Local().Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second)))
	sb.WriteString(fmt.Sprintf("Added:    %d new notices\n", rec.TotalAdded))
	sb.WriteString(fmt.Sprintf("Sources:  %d ok, %d failed\n", rec.OKCount, rec.ErrCount))

	if rec.Aborted {
		sb.WriteString(fmt.Sprintf("\nAborted: %s\n", rec.AbortReason))
	}

	var failed []types.SourceOutcome
	for _, o := range rec.Outcomes {
		if o.Status == types.StatusError {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailed sources:\n")
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s: %s\n", failed[i].SourceID, failed[i].Error))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	title := "PULL COMPLETE"
	if rec.Aborted {
		title = "PULL ABORTED"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStatus outputs the runner state, store totals and gate countdown.
func (p *Printer) PrintStatus(obs scheduler.Observation, now time.Time) {
	var sb strings.Builder

	state := "idle"
	if obs.Running {
		state = "running"
	}
	sb.WriteString(fmt.Sprintf("State:    %s\n", state))
	if obs.Message != "" {
		sb.WriteString(fmt.Sprintf("Message:  %s\n", obs.Message))
	}
	if obs.Running {
		c := obs.Counts
		sb.WriteString(fmt.Sprintf("Sources:  %d ok, %d failed, %d in flight, %d waiting\n", c.OK, c.Error, c.InFlight, c.Waiting))
	}

	if obs.Store != nil {
		sb.WriteString(fmt.Sprintf("Notices:  %d (%d new)\n", len(obs.Store.Notices), obs.Store.NewCount(now)))
		if last, ok := obs.Store.LatestRun(); ok {
			sb.WriteString(fmt.Sprintf("Last run: %s, %d added\n", last.StartedAt.Local().Format(timeLayout), last.TotalAdded))
		} else {
			sb.WriteString("Last run: never\n")
		}
	}

	if obs.Gate.Blocked {
		sb.WriteString(fmt.Sprintf("Next run: in %s (%s)\n", gate.FormatCountdown(obs.Gate.Remaining(now)), obs.Gate.Reason))
	} else {
		sb.WriteString("Next run: ready\n")
	}

	if obs.SaveError != "" {
		sb.WriteString(fmt.Sprintf("\n⚠ last save failed: %s\n", obs.SaveError))
	}

	p.printBox("PROCUREMENT WATCH STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBlocked explains why a pull could not start.
func (p *Printer) PrintBlocked(err *gate.BlockedError, now time.Time) {
	if err == nil {
		return
	}

	var sb strings.Builder
	switch err.Reason {
	case gate.ReasonRateLimited:
		sb.WriteString("The backend rate limited the last run.\n")
	default:
		sb.WriteString("A run started recently.\n")
	}
	sb.WriteString(fmt.Sprintf("Retry in %s (at %s)", gate.FormatCountdown(err.RetryAfter(now)), err.Until.Local().Format(timeLayout)))

	p.printBox("PULL BLOCKED", sb.String())
}

// PrintNotices outputs tagged notices, newest first as given. limit <= 0
// prints all of them.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintNotices(notices []types.TaggedNotice, limit int) {
	if len(notices) == 0 {
		fmt.Fprintln(p.out, "No notices match.")
		return
	}

	count := len(notices)
	if limit > 0 {
		count = min(count, limit)
	}
	for i := 0; i < count; i++ {
		n := notices[i]
		marker := " "
		if n.IsNew {
			marker = "★"
		}
		title := n.Title
		if title == "" {
			title = n.URL
		}
		fmt.Fprintf(p.out, "%s %s\n", marker, truncate(title, 76))

		meta := []string{string(n.Region), n.Label}
		if n.Buyer != "" {
			meta = append(meta, n.Buyer)
		}
		if n.Date != "" {
			meta = append(meta, n.Date)
		}
		fmt.Fprintf(p.out, "  %s\n", truncate(strings.Join(meta, " · "), 76))
		if n.URL != "" && n.Title != "" {
			fmt.Fprintf(p.out, "  %s\n", n.URL)
		}
	}

	if count < len(notices) {
		fmt.Fprintf(p.out, "... and %d more notices\n", len(notices)-count)
	}
}

// PrintRuns outputs one line per run record. total is the number of runs
// recorded overall; a footer is added when not all of them are listed.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRuns(runs []types.RunRecord, total int) {
	if len(runs) == 0 {
		fmt.Fprintln(p.out, "No runs recorded.")
		return
	}

	fmt.Fprintf(p.out, "%-16s  %-8s  %5s  %4s  %4s  %s\n", "STARTED", "DURATION", "ADDED", "OK", "ERR", "NOTE")
	for _, r := range runs {
		note := ""
		if r.Aborted {
			note = "aborted: " + truncate(r.AbortReason, 40)
		}
		fmt.Fprintf(p.out, "%-16s  %-8s  %5d  %4d  %4d  %s\n",
			r.StartedAt.Local().Format(timeLayout),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.TotalAdded, r.OKCount, r.ErrCount, note)
	}
	if total > len(runs) {
		fmt.Fprintf(p.out, "Showing %d of %d runs.\n", len(runs), total)
	}
}

// PrintSources outputs the catalog grouped by batch with each source's last scan.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSources(cat *catalog.Catalog, lastScanned map[string]time.Time) {
	if cat == nil {
		return
	}

	for i, b := range cat.Batches {
		if i > 0 {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintf(p.out, "%s (%s)\n", b.Label, b.ID)
		for _, id := range b.SourceIDs {
			src, ok := cat.Source(id)
			if !ok {
				continue
			}
			scanned := "never"
			if at, ok := lastScanned[id]; ok {
				scanned = at.Local().Format(timeLayout)
			}
			fmt.Fprintf(p.out, "  %-20s %-8s %-15s %s\n", src.ID, src.Region, src.Category, scanned)
		}
	}
}

// PrintProgress outputs a single progress line for a run event.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event scheduler.ProgressEvent) {
	switch event.Type {
	case scheduler.EventBatchStarted, scheduler.EventBatchWaiting:
		fmt.Fprintf(p.out, "[%d/%d] %s\n", event.Index, event.Total, event.Message)
	case scheduler.EventBatchFinished:
		ok, failed, added := 0, 0, 0
		for _, o := range event.Outcomes {
			added += o.Added
			if o.Status == types.StatusError {
				failed++
			} else {
				ok++
			}
		}
		fmt.Fprintf(p.out, "[%d/%d] %s: %d ok, %d failed, %d added\n", event.Index, event.Total, event.Batch, ok, failed, added)
	case scheduler.EventRateLimited, scheduler.EventSaveFailed:
		fmt.Fprintf(p.out, "⚠ %s\n", event.Message)
	default:
		if event.Message != "" {
			fmt.Fprintln(p.out, event.Message)
		}
	}
}
