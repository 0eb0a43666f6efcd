package contract

import (
	"strings"
	"testing"
	"time"

	"github.com/securewatch/traceguard/internal/domain"
)

const traceID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// healthyTrace returns a minimal event set satisfying every invariant.
func healthyTrace() []domain.Event {
	return []domain.Event{
		{
			ID: "ev-1", TraceID: traceID, ScanID: "scan-1",
			EventType: domain.EventWorkflowStart, Source: "agent-1",
			Req:       domain.Fields{"target": "example.com"},
			CreatedAt: base,
		},
		{
			ID: "ev-2", TraceID: traceID, ScanID: "scan-1",
			EventType: domain.EventToolCall, Source: "agent-1",
			CreatedAt: base.Add(time.Second),
		},
		{
			ID: "ev-3", TraceID: traceID, ScanID: "scan-1",
			EventType: domain.EventWorkflowComplete, Source: "agent-1",
			CreatedAt: base.Add(2 * time.Second),
		},
	}
}

func result(t *testing.T, report *Report, name string) CheckResult {
	t.Helper()
	for _, res := range report.Results {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result named %q in %v", name, report.Results)
	return CheckResult{}
}

func TestEvaluate_HealthyTracePasses(t *testing.T) {
	report := Evaluate(healthyTrace(), Options{TraceID: traceID})

	if !report.Passed() {
		t.Errorf("healthy trace should pass, failures: %v", report.Failed())
	}
	if len(report.Results) != 9 {
		t.Errorf("got %d results, want 9 (fixture check not requested)", len(report.Results))
	}
}

func TestEvaluate_ChecksAreIndependent(t *testing.T) {
	// An empty event set fails several checks; all of them must still be
	// evaluated and reported rather than short-circuiting on the first.
	report := Evaluate(nil, Options{TraceID: traceID})

	if len(report.Results) != 9 {
		t.Fatalf("got %d results, want 9", len(report.Results))
	}
	for _, name := range []string{"events_present", "workflow_start_present", "activity_present", "terminal_present"} {
		if res := result(t, report, name); res.Passed {
			t.Errorf("%s should fail for an empty trace", name)
		}
	}
	// Vacuously true checks still report.
	for _, name := range []string{"shared_trace_id", "terminal_count", "error_payload", "scan_id_consistency", "temporal_ordering"} {
		if res := result(t, report, name); !res.Passed {
			t.Errorf("%s should pass vacuously for an empty trace", name)
		}
	}
}

func TestEvaluate_SharedTraceID(t *testing.T) {
	events := healthyTrace()

	// Case difference alone is not a mismatch.
	events[1].TraceID = strings.ToUpper(traceID)
	report := Evaluate(events, Options{TraceID: traceID})
	if res := result(t, report, "shared_trace_id"); !res.Passed {
		t.Errorf("case-insensitive match should pass, detail: %s", res.Detail)
	}

	events[1].TraceID = "00000000-0000-0000-0000-000000000000"
	report = Evaluate(events, Options{TraceID: traceID})
	res := result(t, report, "shared_trace_id")
	if res.Passed {
		t.Fatal("mismatched trace_id should fail")
	}
	if !strings.Contains(res.Detail, "ev-2") {
		t.Errorf("detail should name the offending event, got: %s", res.Detail)
	}
}

func TestEvaluate_WorkflowStart(t *testing.T) {
	// Missing start.
	events := healthyTrace()[1:]
	report := Evaluate(events, Options{TraceID: traceID})
	res := result(t, report, "workflow_start_present")
	if res.Passed {
		t.Fatal("trace without workflow.start should fail")
	}
	if !strings.Contains(res.Detail, "workflow.start") {
		t.Errorf("detail should name the missing event type, got: %s", res.Detail)
	}

	// Start without source.
	events = healthyTrace()
	events[0].Source = ""
	report = Evaluate(events, Options{TraceID: traceID})
	res = result(t, report, "workflow_start_present")
	if res.Passed {
		t.Fatal("workflow.start without source should fail")
	}
	if !strings.Contains(res.Detail, "ev-1") {
		t.Errorf("detail should name the offending event, got: %s", res.Detail)
	}
}

func TestEvaluate_ActivityPresent(t *testing.T) {
	events := healthyTrace()

	// A free-form tool.* event counts as activity.
	events[1].EventType = "tool.nmap_scan"
	report := Evaluate(events, Options{TraceID: traceID})
	if res := result(t, report, "activity_present"); !res.Passed {
		t.Errorf("tool.* prefixed event should count as activity, detail: %s", res.Detail)
	}

	events[1].EventType = "something.else"
	report = Evaluate(events, Options{TraceID: traceID})
	if res := result(t, report, "activity_present"); res.Passed {
		t.Error("trace without activity should fail")
	}
}

func TestEvaluate_TerminalCount(t *testing.T) {
	// One complete plus one error is legitimate.
	events := healthyTrace()
	events = append(events, domain.Event{
		ID: "ev-4", TraceID: traceID, EventType: domain.EventWorkflowError,
		Err:       domain.Fields{"message": "boom"},
		CreatedAt: base.Add(3 * time.Second),
	})
	report := Evaluate(events, Options{TraceID: traceID})
	if res := result(t, report, "terminal_count"); !res.Passed {
		t.Errorf("two terminals should pass, detail: %s", res.Detail)
	}

	// A third terminal is a consistency failure.
	events = append(events, domain.Event{
		ID: "ev-5", TraceID: traceID, EventType: domain.EventWorkflowComplete,
		CreatedAt: base.Add(4 * time.Second),
	})
	report = Evaluate(events, Options{TraceID: traceID})
	res := result(t, report, "terminal_count")
	if res.Passed {
		t.Fatal("three terminals should fail")
	}
	if !strings.Contains(res.Detail, "ev-5") {
		t.Errorf("detail should list the terminal events, got: %s", res.Detail)
	}
}

func TestEvaluate_ErrorPayload(t *testing.T) {
	tests := []struct {
		name       string
		err        domain.Fields
		wantPassed bool
		wantInMsg  string
	}{
		{"well-formed", domain.Fields{"message": "scan failed", "code": "E1"}, true, ""},
		{"null err", nil, false, "err is null"},
		{"code but no message", domain.Fields{"code": "E1"}, false, "no message"},
		{"empty message", domain.Fields{"message": ""}, false, "no message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := healthyTrace()
			events[2] = domain.Event{
				ID: "ev-err", TraceID: traceID, EventType: domain.EventWorkflowError,
				Err:       tt.err,
				CreatedAt: base.Add(2 * time.Second),
			}

			report := Evaluate(events, Options{TraceID: traceID})
			res := result(t, report, "error_payload")
			if res.Passed != tt.wantPassed {
				t.Fatalf("error_payload passed = %v, want %v (detail: %s)", res.Passed, tt.wantPassed, res.Detail)
			}
			if !tt.wantPassed {
				if !strings.Contains(res.Detail, "ev-err") || !strings.Contains(res.Detail, tt.wantInMsg) {
					t.Errorf("detail should name event and cause, got: %s", res.Detail)
				}
			}
		})
	}
}

func TestEvaluate_ScanIDConsistency(t *testing.T) {
	events := healthyTrace()

	// Null scan_ids do not count toward the distinct set.
	events[1].ScanID = ""
	report := Evaluate(events, Options{TraceID: traceID})
	if res := result(t, report, "scan_id_consistency"); !res.Passed {
		t.Errorf("single scan_id plus nulls should pass, detail: %s", res.Detail)
	}

	events[1].ScanID = "scan-2"
	report = Evaluate(events, Options{TraceID: traceID})
	res := result(t, report, "scan_id_consistency")
	if res.Passed {
		t.Fatal("two distinct scan_ids should fail")
	}
	if !strings.Contains(res.Detail, "scan-1") || !strings.Contains(res.Detail, "scan-2") {
		t.Errorf("detail should name the offending set, got: %s", res.Detail)
	}
}

func TestEvaluate_TemporalOrdering(t *testing.T) {
	// Equal timestamps are tolerated, including all-equal.
	events := healthyTrace()
	for i := range events {
		events[i].CreatedAt = base
	}
	report := Evaluate(events, Options{TraceID: traceID})
	if res := result(t, report, "temporal_ordering"); !res.Passed {
		t.Errorf("equal timestamps should pass, detail: %s", res.Detail)
	}

	// A decrease is reported with the offending index and both timestamps.
	events = healthyTrace()
	events[2].CreatedAt = base.Add(-time.Second)
	report = Evaluate(events, Options{TraceID: traceID})
	res := result(t, report, "temporal_ordering")
	if res.Passed {
		t.Fatal("decreasing timestamps should fail")
	}
	if !strings.Contains(res.Detail, "index 2") || !strings.Contains(res.Detail, "index 1") {
		t.Errorf("detail should carry both indexes, got: %s", res.Detail)
	}
}

func TestEvaluate_FixtureMode(t *testing.T) {
	events := healthyTrace()
	for i := range events {
		events[i].Meta = domain.Fields{"fixture_mode": true}
	}

	// Not requested: the check is not part of the report.
	report := Evaluate(events, Options{TraceID: traceID})
	for _, res := range report.Results {
		if res.Name == "fixture_mode" {
			t.Fatal("fixture_mode check should be absent when not requested")
		}
	}

	// Requested and satisfied.
	report = Evaluate(events, Options{TraceID: traceID, ExpectFixtureMode: true})
	if res := result(t, report, "fixture_mode"); !res.Passed {
		t.Errorf("fixture_mode should pass, detail: %s", res.Detail)
	}

	// One event missing the flag is listed by id.
	events[1].Meta = nil
	report = Evaluate(events, Options{TraceID: traceID, ExpectFixtureMode: true})
	res := result(t, report, "fixture_mode")
	if res.Passed {
		t.Fatal("missing fixture_mode should fail")
	}
	if !strings.Contains(res.Detail, "ev-2") {
		t.Errorf("detail should list the offending event, got: %s", res.Detail)
	}
}

func TestReport_PassedAndFailed(t *testing.T) {
	report := &Report{Results: []CheckResult{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Detail: "broken"},
		{Name: "c", Passed: true},
	}}

	if report.Passed() {
		t.Error("report with a failure should not pass")
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Errorf("Failed() = %v, want just b", failed)
	}
}
