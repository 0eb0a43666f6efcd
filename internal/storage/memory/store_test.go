package memory

import (
	"context"
	"testing"
	"time"

	"github.com/securewatch/traceguard/internal/domain"
)

func TestStore_AppendAssignsDefaults(t *testing.T) {
	store := New()

	ev := &domain.Event{TraceID: "t-1", EventType: domain.EventWorkflowStart}
	if err := store.AppendEvent(context.Background(), ev); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if ev.ID == "" {
		t.Error("AppendEvent() should assign an id")
	}
	if ev.CreatedAt.IsZero() {
		t.Error("AppendEvent() should assign a timestamp")
	}
}

func TestStore_OrdersByTimestampThenInsertion(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Inserted out of order, with a timestamp tie between ev-b and ev-c.
	inserts := []*domain.Event{
		{ID: "ev-b", TraceID: "T-1", EventType: domain.EventToolCall, CreatedAt: base.Add(time.Second)},
		{ID: "ev-c", TraceID: "t-1", EventType: domain.EventToolResult, CreatedAt: base.Add(time.Second)},
		{ID: "ev-a", TraceID: "t-1", EventType: domain.EventWorkflowStart, CreatedAt: base},
	}
	for _, ev := range inserts {
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent(%s) error = %v", ev.ID, err)
		}
	}

	events, err := store.EventsByTrace(ctx, "t-1")
	if err != nil {
		t.Fatalf("EventsByTrace() error = %v", err)
	}

	want := []string{"ev-a", "ev-b", "ev-c"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("events[%d].ID = %v, want %v", i, events[i].ID, id)
		}
	}
}

func TestStore_UnknownTraceIsEmpty(t *testing.T) {
	store := New()

	events, err := store.EventsByTrace(context.Background(), "missing")
	if err != nil {
		t.Fatalf("EventsByTrace() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}
