package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

// SessionRepository provides PostgreSQL-backed capture session history
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// StartSession stores a newly started session
func (r *SessionRepository) StartSession(ctx context.Context, s database.SessionRecord) error {
	query := `
		INSERT INTO capture_sessions (id, subject_id, course, class_year, division, attendance_date, teacher_id, device, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.SubjectID, s.Course, s.ClassYear, s.Division, s.Date, s.TeacherID, s.Device, s.StartedAt)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// RecordSubmission stores one submission attempt
func (r *SessionRepository) RecordSubmission(ctx context.Context, sub database.SubmissionRecord) error {
	query := `
		INSERT INTO capture_submissions (session_id, attempt, frame_seqs, success, message, error, orphaned, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query,
		sub.SessionID, sub.Attempt, pq.Array(sub.FrameSeqs), sub.Success, sub.Message, sub.Error,
		sub.Orphaned, sub.Duration.Milliseconds(), createdAt)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// FinishSession marks a session stopped and stores its totals
func (r *SessionRepository) FinishSession(ctx context.Context, sessionID string, stoppedAt time.Time, totals database.SessionTotals) error {
	query := `
		UPDATE capture_sessions
		SET stopped_at = $2, frames_captured = $3, frames_dropped = $4, batches_submitted = $5, batches_failed = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, sessionID, stoppedAt,
		totals.FramesCaptured, totals.FramesDropped, totals.BatchesSubmitted, totals.BatchesFailed)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session: session %s not found", sessionID)
	}
	return nil
}

const sessionColumns = `id, subject_id, course, class_year, division, to_char(attendance_date, 'YYYY-MM-DD'),
	teacher_id, device, started_at, stopped_at, frames_captured, frames_dropped, batches_submitted, batches_failed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (database.SessionRecord, error) {
	var s database.SessionRecord
	var stoppedAt sql.NullTime
	err := row.Scan(&s.ID, &s.SubjectID, &s.Course, &s.ClassYear, &s.Division, &s.Date,
		&s.TeacherID, &s.Device, &s.StartedAt, &stoppedAt,
		&s.FramesCaptured, &s.FramesDropped, &s.BatchesSubmitted, &s.BatchesFailed)
	if err != nil {
		return s, err
	}
	if stoppedAt.Valid {
		t := stoppedAt.Time
		s.StoppedAt = &t
	}
	return s, nil
}

// ListSessions returns the most recent sessions first
func (r *SessionRepository) ListSessions(ctx context.Context, limit int) ([]database.SessionRecord, error) {
	if limit <= 0 {
		limit = database.DefaultSessionListLimit
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+sessionColumns+" FROM capture_sessions ORDER BY started_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.SessionRecord
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetSession retrieves a session by ID, returns nil if not found
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*database.SessionRecord, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM capture_sessions WHERE id = $1", sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// ListSubmissions returns the submissions of a session in attempt order
func (r *SessionRepository) ListSubmissions(ctx context.Context, sessionID string) ([]database.SubmissionRecord, error) {
	query := `
		SELECT id, session_id, attempt, frame_seqs, success, message, error, orphaned, duration_ms, created_at
		FROM capture_submissions
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []database.SubmissionRecord
	for rows.Next() {
		var sub database.SubmissionRecord
		var durationMS int64
		if err := rows.Scan(&sub.ID, &sub.SessionID, &sub.Attempt, pq.Array(&sub.FrameSeqs), &sub.Success,
			&sub.Message, &sub.Error, &sub.Orphaned, &durationMS, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Duration = time.Duration(durationMS) * time.Millisecond
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}
