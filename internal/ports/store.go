// Package ports defines the interfaces through which the toolkit talks
// to its external collaborators.
package ports

import (
	"context"

	"github.com/securewatch/traceguard/internal/domain"
)

// EventStore is read-mostly access to the pipeline's append-only event
// log. The verifier and the replay tooling only read; AppendEvent exists
// for the local log-function stand-in and for tests.
type EventStore interface {
	// EventsByTrace returns every event whose trace id equals traceID
	// (compared case-insensitively), ordered by created_at ascending with
	// ties broken by insertion order. An empty slice means the trace does
	// not exist; that is not an error at this layer.
	EventsByTrace(ctx context.Context, traceID string) ([]domain.Event, error)

	// AppendEvent records a new event. Stored events are never updated or
	// deleted through this interface.
	AppendEvent(ctx context.Context, ev *domain.Event) error

	// Close releases the underlying connection.
	Close() error
}
