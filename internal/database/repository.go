package database

import (
	"context"
	"time"
)

// Recorder persists capture session history
type Recorder interface {
	// StartSession stores a newly started session
	StartSession(ctx context.Context, s SessionRecord) error
	// RecordSubmission stores one submission attempt
	RecordSubmission(ctx context.Context, sub SubmissionRecord) error
	// FinishSession marks a session stopped and stores its totals
	FinishSession(ctx context.Context, sessionID string, stoppedAt time.Time, totals SessionTotals) error
}

// SessionReader provides read-only access to capture session history
type SessionReader interface {
	// ListSessions returns the most recent sessions first, at most limit (0 = no limit)
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)
	// GetSession retrieves a session by ID, returns nil if not found
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	// ListSubmissions returns the submissions of a session in attempt order
	ListSubmissions(ctx context.Context, sessionID string) ([]SubmissionRecord, error)
}

// SessionStore combines write and read access
type SessionStore interface {
	Recorder
	SessionReader
}
