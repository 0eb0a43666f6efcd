// Package sqldb implements ports.EventStore on top of database/sql with
// multi-dialect support.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/securewatch/traceguard/internal/domain"
	"github.com/securewatch/traceguard/internal/ports"
	"github.com/securewatch/traceguard/internal/storage/dialect"
)

// Store is a SQL implementation of ports.EventStore. The event_log table
// is append-only; rows are never updated or deleted here.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ ports.EventStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres
	DSN    string // Data source name / connection string
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store (convenience for local use and tests).
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) initSchema() error {
	// seq carries the store-assigned insertion order used to break
	// created_at ties.
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS event_log (
seq %s,
id TEXT NOT NULL UNIQUE,
trace_id TEXT NOT NULL,
scan_id TEXT,
event_type TEXT NOT NULL,
event_name TEXT,
source TEXT,
status TEXT,
req TEXT,
err TEXT,
meta TEXT,
created_at %s NOT NULL
)`, s.dialect.AutoIncrementClause(), s.dialect.TimestampType()),
		`CREATE INDEX IF NOT EXISTS idx_event_log_trace_created ON event_log (trace_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}

// AppendEvent inserts one event row. A missing ID gets a fresh UUID and a
// zero CreatedAt defaults to now, so callers only fill what they know.
func (s *Store) AppendEvent(ctx context.Context, ev *domain.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	req, err := marshalFields(ev.Req)
	if err != nil {
		return fmt.Errorf("failed to encode req: %w", err)
	}
	errField, err := marshalFields(ev.Err)
	if err != nil {
		return fmt.Errorf("failed to encode err: %w", err)
	}
	meta, err := marshalFields(ev.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}

	query := s.dialect.Rebind(`INSERT INTO event_log
(id, trace_id, scan_id, event_type, event_name, source, status, req, err, meta, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		ev.ID,
		ev.TraceID,
		nullable(ev.ScanID),
		ev.EventType,
		nullable(ev.EventName),
		nullable(ev.Source),
		nullable(ev.Status),
		req,
		errField,
		meta,
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// EventsByTrace returns the full timeline for a trace, oldest first.
// created_at ties are broken by insertion order (seq).
func (s *Store) EventsByTrace(ctx context.Context, traceID string) ([]domain.Event, error) {
	query := s.dialect.Rebind(`SELECT id, trace_id, scan_id, event_type, event_name, source, status, req, err, meta, created_at
FROM event_log
WHERE LOWER(trace_id) = LOWER(?)
ORDER BY created_at ASC, seq ASC`)

	rows, err := s.db.QueryContext(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev                           domain.Event
			scanID, name, source, status sql.NullString
			reqJSON, errJSON, metaJSON   sql.NullString
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.TraceID,
			&scanID,
			&ev.EventType,
			&name,
			&source,
			&status,
			&reqJSON,
			&errJSON,
			&metaJSON,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev.ScanID = scanID.String
		ev.EventName = name.String
		ev.Source = source.String
		ev.Status = status.String

		if ev.Req, err = unmarshalFields(reqJSON); err != nil {
			return nil, fmt.Errorf("event %s has malformed req: %w", ev.ID, err)
		}
		if ev.Err, err = unmarshalFields(errJSON); err != nil {
			return nil, fmt.Errorf("event %s has malformed err: %w", ev.ID, err)
		}
		if ev.Meta, err = unmarshalFields(metaJSON); err != nil {
			return nil, fmt.Errorf("event %s has malformed meta: %w", ev.ID, err)
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalFields(f domain.Fields) (any, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalFields(col sql.NullString) (domain.Fields, error) {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil, nil
	}
	var f domain.Fields
	if err := json.Unmarshal([]byte(col.String), &f); err != nil {
		return nil, err
	}
	return f, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
