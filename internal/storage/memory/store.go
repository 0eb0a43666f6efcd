// Package memory provides an in-memory ports.EventStore used by tests
// and as the default backend for the local log-function server.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/securewatch/traceguard/internal/domain"
	"github.com/securewatch/traceguard/internal/ports"
)

// Store is an in-memory implementation of ports.EventStore.
type Store struct {
	mu     sync.RWMutex
	events []entry
}

// entry pairs an event with its insertion sequence so created_at ties
// replay in store order, matching the SQL adapter.
type entry struct {
	seq int
	ev  domain.Event
}

var _ ports.EventStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{}
}

func (s *Store) AppendEvent(ctx context.Context, ev *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	s.events = append(s.events, entry{seq: len(s.events), ev: *ev})
	return nil
}

func (s *Store) EventsByTrace(ctx context.Context, traceID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := strings.ToLower(traceID)
	var matched []entry
	for _, e := range s.events {
		if strings.ToLower(e.ev.TraceID) == want {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].ev.CreatedAt.Equal(matched[j].ev.CreatedAt) {
			return matched[i].seq < matched[j].seq
		}
		return matched[i].ev.CreatedAt.Before(matched[j].ev.CreatedAt)
	})

	out := make([]domain.Event, len(matched))
	for i, e := range matched {
		out[i] = e.ev
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
