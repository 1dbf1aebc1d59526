package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, ErrDatabaseOpenFailed.Wrap(err).WithContext("path", dbPath)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ErrDatabaseOpenFailed.Wrap(err).WithContext("path", dbPath)
	}
	// A memory database exists per connection, so the pool holds one.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ErrInitializeSchemaFailed.Wrap(err).WithContext("path", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_attempt_id ON events(attempt_id);
	CREATE INDEX IF NOT EXISTS idx_event_type ON events(event_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store.
func (s *SQLiteStore) Append(ctx context.Context, attemptID, eventType string, payload []byte, metadata map[string]string) error {
	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return ErrEventAppendFailed.Wrap(err)
		}
	}
	if payload == nil {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (attempt_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		attemptID, eventType, time.Now().UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return ErrEventAppendFailed.Wrap(err).WithContext("attempt_id", attemptID)
	}
	return nil
}

// ByAttempt retrieves all events for one attempt.
func (s *SQLiteStore) ByAttempt(ctx context.Context, attemptID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, attempt_id, event_type, timestamp, payload, metadata FROM events WHERE attempt_id = ? ORDER BY id",
		attemptID,
	)
	if err != nil {
		return nil, ErrEventQueryFailed.Wrap(err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// Recent retrieves the events of the limit most recently started attempts,
// oldest event first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, event_type, timestamp, payload, metadata FROM events
		WHERE attempt_id IN (
			SELECT attempt_id FROM events GROUP BY attempt_id ORDER BY MIN(id) DESC LIMIT ?
		)
		ORDER BY id`,
		limit,
	)
	if err != nil {
		return nil, ErrEventQueryFailed.Wrap(err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var timestampMillis int64
		var metadataJSON []byte

		if err := rows.Scan(&e.ID, &e.AttemptID, &e.Type, &timestampMillis, &e.Payload, &metadataJSON); err != nil {
			return nil, ErrEventQueryFailed.Wrap(err)
		}
		e.Timestamp = time.UnixMilli(timestampMillis)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, ErrEventQueryFailed.Wrap(err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrEventQueryFailed.Wrap(err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
