// Package gate reads and flips the per-subject attendance window.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// ErrNotRevealed is returned by Panel.Flip before the window was checked.
var ErrNotRevealed = errors.New("attendance window not checked yet")

// Backend is the part of the attendance API the gate needs.
type Backend interface {
	AttendanceStatus(ctx context.Context, subjectID string) (*attendance.StatusResponse, error)
	EnableAttendance(ctx context.Context, subjectID string, enabled bool) (*attendance.MessageResponse, error)
}

// Client queries and toggles attendance windows. Nothing is cached.
type Client struct {
	backend Backend
	timeout time.Duration
}

// NewClient creates a gate client. A zero timeout leaves request deadlines
// to the caller's context.
func NewClient(backend Backend, timeout time.Duration) *Client {
	return &Client{backend: backend, timeout: timeout}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Check returns whether the attendance window of subjectID is open.
func (c *Client) Check(ctx context.Context, subjectID string) (bool, error) {
	if subjectID == "" {
		return false, errors.New("subject id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	status, err := c.backend.AttendanceStatus(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("checking attendance window of %s: %w", subjectID, err)
	}
	return status.Enabled, nil
}

// Toggle sets the attendance window of subjectID and returns the new flag.
func (c *Client) Toggle(ctx context.Context, subjectID string, desired bool) (bool, error) {
	if subjectID == "" {
		return false, errors.New("subject id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.backend.EnableAttendance(ctx, subjectID, desired); err != nil {
		return false, fmt.Errorf("setting attendance window of %s: %w", subjectID, err)
	}
	return desired, nil
}

// State is what a panel shows for one subject.
type State struct {
	SubjectID string    `json:"subject_id"`
	Enabled   bool      `json:"enabled"`
	Revealed  bool      `json:"revealed"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// Panel sequences checks and toggles the way the dashboard does: the toggle
// is only offered for a subject after its window was checked at least once
// during the panel's lifetime.
type Panel struct {
	client *Client

	mu     sync.Mutex
	states map[string]State
}

// NewPanel creates an empty panel.
func NewPanel(client *Client) *Panel {
	return &Panel{client: client, states: make(map[string]State)}
}

// Check re-queries the window and reveals its toggle.
func (p *Panel) Check(ctx context.Context, subjectID string) (State, error) {
	enabled, err := p.client.Check(ctx, subjectID)
	if err != nil {
		return p.State(subjectID), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{SubjectID: subjectID, Enabled: enabled, Revealed: true, CheckedAt: time.Now()}
	p.states[subjectID] = st
	return st, nil
}

// Flip toggles the window to the opposite of the last checked value.
func (p *Panel) Flip(ctx context.Context, subjectID string) (State, error) {
	st := p.State(subjectID)
	if !st.Revealed {
		return st, ErrNotRevealed
	}
	return p.Set(ctx, subjectID, !st.Enabled)
}

// Set toggles the window to an explicit value. It is subject to the same
// reveal rule as Flip.
func (p *Panel) Set(ctx context.Context, subjectID string, enabled bool) (State, error) {
	st := p.State(subjectID)
	if !st.Revealed {
		return st, ErrNotRevealed
	}

	got, err := p.client.Toggle(ctx, subjectID, enabled)
	if err != nil {
		return st, err
	}

	// A Check may have landed while the toggle was in flight.
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.states[subjectID]; ok {
		st = cur
	}
	st.Enabled = got
	p.states[subjectID] = st
	return st, nil
}

// State returns the last known state of a subject. Unchecked subjects are
// not revealed.
func (p *Panel) State(subjectID string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[subjectID]; ok {
		return st
	}
	return State{SubjectID: subjectID}
}
