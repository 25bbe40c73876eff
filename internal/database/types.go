package database

import (
	"time"
)

// SessionRecord is one live capture session
type SessionRecord struct {
	ID        string
	SubjectID string
	Course    string
	ClassYear string
	Division  string
	Date      string // YYYY-MM-DD, the attendance day
	TeacherID string
	Device    string
	StartedAt time.Time
	StoppedAt *time.Time

	// Totals, filled in when the session finishes
	FramesCaptured   int
	FramesDropped    int
	BatchesSubmitted int
	BatchesFailed    int
}

// Duration returns how long the session ran, or zero while it is running.
func (s SessionRecord) Duration() time.Duration {
	if s.StoppedAt == nil {
		return 0
	}
	return s.StoppedAt.Sub(s.StartedAt)
}

// SessionTotals are the counters written when a session finishes
type SessionTotals struct {
	FramesCaptured   int
	FramesDropped    int
	BatchesSubmitted int
	BatchesFailed    int
}

// SubmissionRecord is one batch submission attempt
type SubmissionRecord struct {
	ID        int64
	SessionID string
	Attempt   int     // 1 for the first try of a batch, incremented on retries
	FrameSeqs []int64 // capture sequence numbers of the submitted frames
	Success   bool
	Message   string // backend message on success
	Error     string // failure description
	Orphaned  bool   // settled after the session stopped
	Duration  time.Duration
	CreatedAt time.Time
}
