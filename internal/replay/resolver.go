// Package replay locates a trace's root event and re-issues its request
// against a live entrypoint.
package replay

import (
	"github.com/securewatch/traceguard/internal/domain"
)

// ResolveRoot selects the single event representing the original
// triggering request. Priority, first match wins:
//
//  1. the first workflow.start event in ascending time order
//  2. the first event carrying a non-nil req payload
//  3. the earliest event overall
//
// Semantic intent beats structural hint beats temporal default. The
// result is deterministic for a given sequence. Fails with
// domain.ErrNoRootEvent only when the sequence is empty.
func ResolveRoot(events []domain.Event) (*domain.Event, error) {
	if len(events) == 0 {
		return nil, domain.ErrNoRootEvent
	}

	for i := range events {
		if events[i].EventType == domain.EventWorkflowStart {
			return &events[i], nil
		}
	}

	for i := range events {
		if events[i].Req != nil {
			return &events[i], nil
		}
	}

	return &events[0], nil
}
