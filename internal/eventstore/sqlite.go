package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the history database at dbPath, creating it if needed.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, historyError(ErrDatabaseOpenFailed, err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, historyError(ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds an event to the store.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if md := e.Metadata(); md != nil {
		var err error
		if metadataJSON, err = json.Marshal(md); err != nil {
			return historyError(ErrMarshalPayloadFailed, err)
		}
	}
	ts := e.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		e.BuildID(), e.Type(), ts.UnixMilli(), e.Payload(), metadataJSON,
	)
	if err != nil {
		return historyError(ErrEventAppendFailed, err)
	}
	return nil
}

// GetByBuildID retrieves all events for a specific build.
func (s *SQLiteStore) GetByBuildID(ctx context.Context, buildID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload, metadata FROM events WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, historyError(ErrEventQueryFailed, err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload, metadata FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, historyError(ErrEventQueryFailed, err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *SQLiteStore) scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e BaseEvent
		var ts int64
		var metadataJSON []byte

		if err := rows.Scan(&e.EventID, &e.EventBuildID, &e.EventType, &ts, &e.EventPayload, &metadataJSON); err != nil {
			return nil, historyError(ErrEventQueryFailed, err)
		}
		e.EventTimestamp = time.UnixMilli(ts)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.EventMetadata); err != nil {
				return nil, historyError(ErrEventQueryFailed, err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, historyError(ErrEventQueryFailed, err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
