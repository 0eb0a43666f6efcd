// Package contract evaluates a loaded trace against the pipeline's
// lifecycle invariants.
//
// Checks run independently and exhaustively: a failure in one never
// suppresses the rest, so a single run surfaces the complete list of
// problems for whoever is debugging a broken trace.
package contract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/securewatch/traceguard/internal/domain"
)

// CheckResult reports the outcome of one invariant check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Options controls which checks run and what they compare against.
type Options struct {
	// TraceID is the normalized id the events were loaded for. The
	// shared-id check compares every event against it case-insensitively.
	TraceID string

	// ExpectFixtureMode enables the fixture-mode propagation check for
	// traces produced by fixture runs.
	ExpectFixtureMode bool
}

// Report holds the results of a full evaluation.
type Report struct {
	Results []CheckResult `json:"results"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns only the failing results.
func (r *Report) Failed() []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

type checkFunc func(events []domain.Event, opts Options) CheckResult

// checks is the fixed invariant suite, in report order.
var checks = []checkFunc{
	checkEventsPresent,
	checkSharedTraceID,
	checkWorkflowStart,
	checkActivityPresent,
	checkTerminalPresent,
	checkTerminalCount,
	checkErrorPayloads,
	checkScanIDConsistency,
	checkTemporalOrdering,
}

// Evaluate runs every invariant against the event set and returns one
// result per check. The fixture-mode check is included only when the
// caller declared it expects fixture mode.
func Evaluate(events []domain.Event, opts Options) *Report {
	report := &Report{Results: make([]CheckResult, 0, len(checks)+1)}
	for _, check := range checks {
		report.Results = append(report.Results, check(events, opts))
	}
	if opts.ExpectFixtureMode {
		report.Results = append(report.Results, checkFixtureMode(events, opts))
	}
	return report
}

// checkEventsPresent re-checks non-emptiness even though the loader
// already guarantees it.
func checkEventsPresent(events []domain.Event, _ Options) CheckResult {
	if len(events) == 0 {
		return CheckResult{
			Name:   "events_present",
			Detail: "no events recorded for this trace",
		}
	}
	return CheckResult{
		Name:   "events_present",
		Passed: true,
		Detail: fmt.Sprintf("%d event(s)", len(events)),
	}
}

func checkSharedTraceID(events []domain.Event, opts Options) CheckResult {
	want := strings.ToLower(opts.TraceID)
	var bad []string
	for _, ev := range events {
		if strings.ToLower(ev.TraceID) != want {
			bad = append(bad, ev.ID)
		}
	}
	if len(bad) > 0 {
		return CheckResult{
			Name:   "shared_trace_id",
			Detail: fmt.Sprintf("events with mismatched trace_id: %s", strings.Join(bad, ", ")),
		}
	}
	return CheckResult{Name: "shared_trace_id", Passed: true}
}

func checkWorkflowStart(events []domain.Event, _ Options) CheckResult {
	var starts []domain.Event
	for _, ev := range events {
		if ev.EventType == domain.EventWorkflowStart {
			starts = append(starts, ev)
		}
	}
	if len(starts) == 0 {
		return CheckResult{
			Name:   "workflow_start_present",
			Detail: "no workflow.start event found; the first logged event must carry it",
		}
	}

	var missingSource []string
	for _, ev := range starts {
		if ev.Source == "" {
			missingSource = append(missingSource, ev.ID)
		}
	}
	if len(missingSource) > 0 {
		return CheckResult{
			Name:   "workflow_start_present",
			Detail: fmt.Sprintf("workflow.start event(s) missing source: %s", strings.Join(missingSource, ", ")),
		}
	}

	return CheckResult{Name: "workflow_start_present", Passed: true}
}

func checkActivityPresent(events []domain.Event, _ Options) CheckResult {
	for _, ev := range events {
		if ev.IsActivity() {
			return CheckResult{Name: "activity_present", Passed: true}
		}
	}
	return CheckResult{
		Name:   "activity_present",
		Detail: "no tool.call, tool.result, http.request, webhook.received, or tool.* event found",
	}
}

func checkTerminalPresent(events []domain.Event, _ Options) CheckResult {
	for _, ev := range events {
		if ev.IsTerminal() {
			return CheckResult{Name: "terminal_present", Passed: true}
		}
	}
	return CheckResult{
		Name:   "terminal_present",
		Detail: "no workflow.complete or workflow.error event found",
	}
}

// checkTerminalCount allows one complete and one error to coexist, but
// nothing beyond that.
func checkTerminalCount(events []domain.Event, _ Options) CheckResult {
	var terminals []string
	for _, ev := range events {
		if ev.IsTerminal() {
			terminals = append(terminals, fmt.Sprintf("%s (%s)", ev.ID, ev.EventType))
		}
	}
	if len(terminals) > 2 {
		return CheckResult{
			Name:   "terminal_count",
			Detail: fmt.Sprintf("%d terminal events, want at most 2: %s", len(terminals), strings.Join(terminals, ", ")),
		}
	}
	return CheckResult{Name: "terminal_count", Passed: true}
}

func checkErrorPayloads(events []domain.Event, _ Options) CheckResult {
	var bad []string
	for _, ev := range events {
		if ev.EventType != domain.EventWorkflowError {
			continue
		}
		if ev.Err == nil {
			bad = append(bad, fmt.Sprintf("%s: err is null", ev.ID))
			continue
		}
		if _, ok := ev.Err.String("message"); !ok {
			bad = append(bad, fmt.Sprintf("%s: err has no message", ev.ID))
		}
	}
	if len(bad) > 0 {
		return CheckResult{
			Name:   "error_payload",
			Detail: fmt.Sprintf("workflow.error event(s) with malformed err: %s", strings.Join(bad, "; ")),
		}
	}
	return CheckResult{Name: "error_payload", Passed: true}
}

func checkScanIDConsistency(events []domain.Event, _ Options) CheckResult {
	seen := map[string]struct{}{}
	for _, ev := range events {
		if ev.ScanID != "" {
			seen[ev.ScanID] = struct{}{}
		}
	}
	if len(seen) > 1 {
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return CheckResult{
			Name:   "scan_id_consistency",
			Detail: fmt.Sprintf("multiple distinct scan_ids in one trace: %s", strings.Join(ids, ", ")),
		}
	}
	return CheckResult{Name: "scan_id_consistency", Passed: true}
}

// checkTemporalOrdering accepts equal adjacent timestamps. The pipeline
// docs describe ordering as strictly ascending in places, but producers
// do log ties; the permissive non-decreasing rule is the one enforced.
func checkTemporalOrdering(events []domain.Event, _ Options) CheckResult {
	var violations []string
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			violations = append(violations, fmt.Sprintf(
				"index %d (%s) is before index %d (%s)",
				i, events[i].CreatedAt.Format(time.RFC3339Nano),
				i-1, events[i-1].CreatedAt.Format(time.RFC3339Nano),
			))
		}
	}
	if len(violations) > 0 {
		return CheckResult{
			Name:   "temporal_ordering",
			Detail: strings.Join(violations, "; "),
		}
	}
	return CheckResult{Name: "temporal_ordering", Passed: true}
}

func checkFixtureMode(events []domain.Event, _ Options) CheckResult {
	var bad []string
	for _, ev := range events {
		if !ev.Meta.Bool("fixture_mode") {
			bad = append(bad, ev.ID)
		}
	}
	if len(bad) > 0 {
		return CheckResult{
			Name:   "fixture_mode",
			Detail: fmt.Sprintf("events missing meta.fixture_mode=true: %s", strings.Join(bad, ", ")),
		}
	}
	return CheckResult{Name: "fixture_mode", Passed: true}
}
