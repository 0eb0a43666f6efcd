// Package trace loads and validates event timelines from the event store.
package trace

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/securewatch/traceguard/internal/domain"
	"github.com/securewatch/traceguard/internal/ports"
)

// Loader fetches the complete, ordered event set for one trace. It has
// no side effects and is safe to call repeatedly.
type Loader struct {
	store ports.EventStore
}

// NewLoader creates a Loader backed by the given store.
func NewLoader(store ports.EventStore) *Loader {
	return &Loader{store: store}
}

// Load returns all events for traceID ordered by created_at ascending.
// It fails with domain.ErrInvalidTraceID before any I/O when the id is
// not canonical UUID text, and with domain.ErrTraceNotFound when the
// store has no rows — callers must distinguish "doesn't exist yet" from
// "exists but violates invariants".
func (l *Loader) Load(ctx context.Context, traceID string) ([]domain.Event, error) {
	id, err := NormalizeID(traceID)
	if err != nil {
		return nil, err
	}

	events, err := l.store.EventsByTrace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for trace %s: %w", id, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTraceNotFound, id)
	}

	return events, nil
}

// NormalizeID validates that raw is in the canonical 8-4-4-4-12 UUID
// textual form and returns it lower-cased. uuid.Parse alone is too
// permissive (it accepts braces and urn: prefixes), so the length is
// checked first.
func NormalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) != 36 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTraceID, raw)
	}
	if _, err := uuid.Parse(trimmed); err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTraceID, raw)
	}
	return strings.ToLower(trimmed), nil
}
