// Package history keeps a local, append-only record of submission attempts
// in SQLite, so a member can see what was sent, when, and why an attempt
// failed.
package history

import (
	"context"
	"time"
)

// Event types written by the submission pipeline.
const (
	TypeAttemptStarted     = "attempt_started"
	TypeStageFailed        = "stage_failed"
	TypeArchiveBuilt       = "archive_built"
	TypeSubmissionUploaded = "submission_uploaded"
)

// Event is one stored history record.
type Event struct {
	ID        int64
	AttemptID string
	Type      string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}

// Store persists and retrieves attempt events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, attemptID, eventType string, payload []byte, metadata map[string]string) error

	// ByAttempt retrieves all events of one attempt in insertion order.
	ByAttempt(ctx context.Context, attemptID string) ([]Event, error)

	// Recent retrieves the events of the limit most recently started attempts.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
