// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockSessionStore is an in-memory implementation of database.SessionStore
type MockSessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*database.SessionRecord
	order       []string
	submissions []database.SubmissionRecord
	nextID      int64

	// Error injection
	StartError    error
	RecordError   error
	FinishError   error
	ListError     error
	GetError      error
	ListSubsError error
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[string]*database.SessionRecord),
	}
}

// StartSession stores a session
func (m *MockSessionStore) StartSession(ctx context.Context, s database.SessionRecord) error {
	if m.StartError != nil {
		return m.StartError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	m.sessions[s.ID] = &s
	return nil
}

// RecordSubmission stores a submission
func (m *MockSessionStore) RecordSubmission(ctx context.Context, sub database.SubmissionRecord) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sub.ID = m.nextID
	sub.FrameSeqs = slices.Clone(sub.FrameSeqs)
	m.submissions = append(m.submissions, sub)
	return nil
}

// FinishSession marks a session stopped
func (m *MockSessionStore) FinishSession(ctx context.Context, sessionID string, stoppedAt time.Time, totals database.SessionTotals) error {
	if m.FinishError != nil {
		return m.FinishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	s.StoppedAt = &stoppedAt
	s.FramesCaptured = totals.FramesCaptured
	s.FramesDropped = totals.FramesDropped
	s.BatchesSubmitted = totals.BatchesSubmitted
	s.BatchesFailed = totals.BatchesFailed
	return nil
}

// ListSessions returns sessions, most recently started first
func (m *MockSessionStore) ListSessions(ctx context.Context, limit int) ([]database.SessionRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.SessionRecord
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.sessions[m.order[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetSession returns a session by ID, or nil
func (m *MockSessionStore) GetSession(ctx context.Context, sessionID string) (*database.SessionRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// ListSubmissions returns the submissions of a session in insertion order
func (m *MockSessionStore) ListSubmissions(ctx context.Context, sessionID string) ([]database.SubmissionRecord, error) {
	if m.ListSubsError != nil {
		return nil, m.ListSubsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.SubmissionRecord
	for _, sub := range m.submissions {
		if sub.SessionID == sessionID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Submissions returns every recorded submission
func (m *MockSessionStore) Submissions() []database.SubmissionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.submissions)
}

// Verify interface compliance
var _ database.SessionStore = (*MockSessionStore)(nil)
