package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/securewatch/traceguard/internal/domain"
)

func TestFormatTimeline(t *testing.T) {
	events := []domain.Event{
		{
			EventType: domain.EventWorkflowStart,
			Source:    "agent-1",
			Status:    "ok",
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			EventType: domain.EventWorkflowError,
			Source:    "agent-1",
			Status:    "error",
			Err:       domain.Fields{"message": strings.Repeat("x", 100)},
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		},
		{
			// Missing fields render as "?" instead of blanks.
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 6, 0, time.UTC),
		},
	}

	out := FormatTimeline(events)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}

	if !strings.Contains(lines[0], "workflow.start") || !strings.Contains(lines[0], "agent-1") {
		t.Errorf("line 0 missing type/source: %s", lines[0])
	}
	if !strings.Contains(lines[1], "ERR="+strings.Repeat("x", 80)) {
		t.Errorf("line 1 should carry trimmed error summary: %s", lines[1])
	}
	if strings.Contains(lines[1], strings.Repeat("x", 81)) {
		t.Errorf("error summary should be trimmed to 80 chars: %s", lines[1])
	}
	if !strings.Contains(lines[2], "?") {
		t.Errorf("line 2 should render placeholders: %s", lines[2])
	}
}

func TestFormatTimeline_Empty(t *testing.T) {
	if out := FormatTimeline(nil); out != "" {
		t.Errorf("FormatTimeline(nil) = %q, want empty", out)
	}
}
