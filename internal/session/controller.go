// Package session runs live capture sessions: it marks the class absent,
// opens the camera, samples frames into batches and submits them for
// recognition one at a time until the teacher stops the camera.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// State is the lifecycle state of a controller.
type State string

// Controller states.
const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateStopping State = "stopping"
)

// Backend is the part of the attendance API a session calls.
type Backend interface {
	MarkAbsent(ctx context.Context, bc batch.Context) (*attendance.MessageResponse, error)
	SubmitFacialBatch(ctx context.Context, b batch.Batch) (*attendance.FacialBatchResponse, error)
}

// Status is a snapshot of the controller.
type Status struct {
	State            State      `json:"state"`
	SessionID        string     `json:"session_id,omitempty"`
	Params           *Params    `json:"params,omitempty"`
	Device           string     `json:"device,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FramesCaptured   int64      `json:"frames_captured"`
	FramesQueued     int64      `json:"frames_queued"`
	FramesDropped    int64      `json:"frames_dropped"`
	BatchesSubmitted int64      `json:"batches_submitted"`
	BatchesFailed    int64      `json:"batches_failed"`
	InFlight         bool       `json:"in_flight"`
}

// Controller owns at most one capture session at a time.
type Controller struct {
	identity Identity
	backend  Backend
	device   capture.Device
	opts     Options
	log      *Log

	history *historyWriter // nil without a recorder

	mu            sync.Mutex
	state         State
	current       *run
	stopRequested bool
	closed        bool
}

// NewController creates an idle controller.
func NewController(identity Identity, backend Backend, device capture.Device, opts Options) *Controller {
	c := &Controller{
		identity: identity,
		backend:  backend,
		device:   device,
		opts:     opts.withDefaults(),
		log:      NewLog(),
		state:    StateIdle,
	}
	if c.opts.Recorder != nil {
		c.history = newHistoryWriter(c.opts.Recorder, database.RecordQueueSize)
	}
	return c
}

// Log returns the user-visible log shared by all sessions of this controller.
func (c *Controller) Log() *Log {
	return c.log
}

// Identity returns who sessions submit attendance as.
func (c *Controller) Identity() Identity {
	return c.identity
}

// Start validates p, marks the class absent, opens the camera and starts
// sampling. It returns ErrSessionActive unless the controller is idle, a
// *ValidationError for missing filters, and an error wrapping
// capture.ErrDeviceUnavailable when the camera cannot be opened. A Stop
// that arrives while the session is starting makes Start release the camera
// and return ErrStartCancelled. The controller is idle again after any
// failure.
func (c *Controller) Start(ctx context.Context, p Params) (*Status, error) {
	p = p.normalize(time.Now())
	if err := p.Validate(); err != nil {
		c.log.Warnf("Cannot start camera: %v", err)
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	c.state = StateStarting
	c.stopRequested = false
	c.mu.Unlock()

	r, err := c.startRun(ctx, p)

	c.mu.Lock()
	if err != nil {
		c.state = StateIdle
		c.stopRequested = false
		c.mu.Unlock()
		return nil, err
	}
	c.current = r
	if c.stopRequested {
		c.stopRequested = false
		c.state = StateStopping
		c.mu.Unlock()
		c.finish(r)
		c.reset()
		c.log.Infof("Camera start cancelled.")
		return nil, ErrStartCancelled
	}
	c.state = StateActive
	st := c.statusLocked()
	c.mu.Unlock()
	return st, nil
}

func (c *Controller) stopPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRequested
}

func (c *Controller) startRun(ctx context.Context, p Params) (*run, error) {
	bc := batch.Context{SubjectID: p.SubjectID, Date: p.Date, TeacherID: c.identity.TeacherID}
	c.markAbsent(ctx, bc)
	if c.stopPending() {
		c.log.Infof("Camera start cancelled.")
		return nil, ErrStartCancelled
	}

	stream, err := c.device.Open(ctx)
	if err != nil {
		if !errors.Is(err, capture.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
		}
		c.log.Errorf("Unable to access camera: %v", err)
		return nil, err
	}

	r := newRun(ctx, c, p, bc, stream)
	// Queued ahead of anything the loop records.
	c.record(func(ctx context.Context, rec database.Recorder) error {
		return rec.StartSession(ctx, r.record())
	})
	go r.loop()
	if err := r.sampler.Start(stream, c.opts.Interval, r.onFrame); err != nil {
		c.finish(r)
		c.log.Errorf("Unable to start sampling: %v", err)
		return nil, err
	}

	c.log.Infof("Camera started.")
	return r, nil
}

// markAbsent runs the mark-everyone-absent precondition. Its failure is
// logged and never blocks the session.
func (c *Controller) markAbsent(ctx context.Context, bc batch.Context) {
	if c.opts.MarkAbsentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.MarkAbsentTimeout)
		defer cancel()
	}

	resp, err := c.backend.MarkAbsent(ctx, bc)
	if err != nil {
		c.log.Warnf("Could not mark students absent: %v", err)
		return
	}
	if resp.Message != "" {
		c.log.Infof("%s", resp.Message)
	}
}

// Stop halts sampling and releases the camera. A session that is still
// starting is cancelled once its start completes. Otherwise Stop is a no-op
// unless a session is active. A submission still in flight is left to
// finish; its result is logged but no longer affects any session.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStarting {
		c.stopRequested = true
		c.mu.Unlock()
		return nil
	}
	if c.state != StateActive {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	r := c.current
	c.mu.Unlock()

	c.finish(r)
	c.reset()
	c.log.Infof("Camera stopped.")
	if r.gate.InFlight() {
		c.log.Infof("A batch is still being processed; its result will be logged when it arrives.")
	}
	return nil
}

// finish releases the camera of r and records its totals.
func (c *Controller) finish(r *run) {
	if discarded := r.shutdown(); discarded > 0 {
		log.Printf("session %s: discarded %d unsubmitted frames", r.id, discarded)
	}

	totals := r.totals()
	stoppedAt := time.Now()
	c.record(func(rctx context.Context, rec database.Recorder) error {
		return rec.FinishSession(rctx, r.id, stoppedAt, totals)
	})
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.current = nil
	c.state = StateIdle
	c.mu.Unlock()
}

// Close stops the current session and waits for pending history writes
// until ctx ends. The controller cannot be started again.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if err := c.Stop(ctx); err != nil {
		return err
	}
	if c.history == nil {
		return nil
	}
	return c.history.close(ctx)
}

// Status returns a snapshot of the controller and its current session.
func (c *Controller) Status() *Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() *Status {
	st := &Status{State: c.state}
	r := c.current
	if r == nil {
		return st
	}

	params := r.params
	startedAt := r.startedAt
	st.SessionID = r.id
	st.Params = &params
	st.Device = c.opts.DeviceName
	st.StartedAt = &startedAt
	st.FramesCaptured = r.captured.Load()
	st.FramesQueued = r.queued.Load()
	st.FramesDropped = r.dropped.Load()
	st.BatchesSubmitted = r.submitted.Load()
	st.BatchesFailed = r.failed.Load()
	st.InFlight = r.gate.InFlight()
	return st
}

// record queues a history write when a recorder is configured. It never
// blocks; failures are logged and otherwise ignored.
func (c *Controller) record(fn historyWrite) {
	if c.history == nil {
		return
	}
	c.history.enqueue(fn)
}
