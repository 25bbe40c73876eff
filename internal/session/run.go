package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// run is one capture session, from camera start to camera stop.
//
// The loop goroutine is the only owner of the frame queue and the retry
// state. The sampler and the submission goroutine talk to it over channels.
type run struct {
	id        string
	params    Params
	bctx      batch.Context
	startedAt time.Time

	ctrl    *Controller
	ctx     context.Context // detached from the caller; submissions outlive Stop
	stream  capture.Stream
	sampler *capture.Sampler
	gate    batch.Gate

	frames   chan capture.Frame
	settled  chan batch.Settlement
	done     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once

	// Published by the loop for Status.
	captured  atomic.Int64
	queued    atomic.Int64
	dropped   atomic.Int64
	submitted atomic.Int64
	failed    atomic.Int64
	attempt   atomic.Int64 // attempt number of the in-flight submission
}

// pipeline is the loop-owned state.
type pipeline struct {
	acc     *batch.Accumulator
	backoff backoff.BackOff
	retryAt time.Time
	attempt int
}

func newRun(ctx context.Context, c *Controller, p Params, bc batch.Context, stream capture.Stream) *run {
	r := &run{
		id:        uuid.NewString(),
		params:    p,
		bctx:      bc,
		startedAt: time.Now(),
		ctrl:      c,
		ctx:       context.WithoutCancel(ctx),
		stream:    stream,
		frames:    make(chan capture.Frame),
		settled:   make(chan batch.Settlement),
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}

	samplerOpts := c.opts.Sampler
	samplerOpts.OnError = func(err error) {
		log.Printf("session %s: frame skipped: %v", r.id, err)
	}
	r.sampler = capture.NewSampler(samplerOpts)
	return r
}

// onFrame hands a sampled frame to the loop.
func (r *run) onFrame(f capture.Frame) {
	select {
	case r.frames <- f:
	case <-r.done:
	}
}

// deliver hands a settlement to the loop. It reports false when the session
// has already stopped, leaving the settlement orphaned.
func (r *run) deliver(s batch.Settlement) bool {
	select {
	case r.settled <- s:
		return true
	case <-r.done:
		r.orphan(s, int(r.attempt.Load()))
		return false
	}
}

func (r *run) submit(ctx context.Context, b batch.Batch) (batch.Outcome, error) {
	resp, err := r.ctrl.backend.SubmitFacialBatch(ctx, b)
	if err != nil {
		return batch.Outcome{}, err
	}
	msg := strings.TrimSpace(resp.Message)
	if msg == "" {
		msg = "Batch processed"
	}
	return batch.Outcome{Message: msg, Consumed: len(b.Frames)}, nil
}

func (r *run) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// shutdown stops sampling, releases the camera exactly once and ends the
// loop. It returns how many queued frames were discarded.
func (r *run) shutdown() (discarded int64) {
	r.stopOnce.Do(func() {
		// The loop keeps draining frames until the sampler has exited.
		r.sampler.Stop()
		if err := r.stream.Close(); err != nil {
			log.Printf("session %s: closing camera: %v", r.id, err)
		}
		close(r.done)
		<-r.loopDone
		discarded = r.queued.Swap(0)
	})
	return discarded
}

func (r *run) loop() {
	defer close(r.loopDone)

	opts := r.ctrl.opts
	p := &pipeline{
		acc:     batch.NewAccumulator(constants.BatchSize),
		backoff: opts.Retry.newBackOff(),
	}
	if opts.QueuePolicy != batch.PolicyUnbounded {
		p.acc.WithLimit(opts.QueuePolicy, opts.QueueLimit)
	}

	for {
		select {
		case <-r.done:
			return

		case f := <-r.frames:
			p.acc.Push(f)
			r.captured.Add(1)
			r.publish(p)
			r.dispatch(p)

		case s := <-r.settled:
			r.gate.Release()
			if r.stopped() {
				r.orphan(s, p.attempt)
				return
			}
			if s.Err != nil {
				r.handleFailure(p, s)
				continue
			}
			r.handleSuccess(p, s)
			r.dispatch(p)
		}
	}
}

func (r *run) publish(p *pipeline) {
	r.queued.Store(int64(p.acc.Len()))
	r.dropped.Store(int64(p.acc.Dropped()))
}

// dispatch submits the leading batch when one is ready, no submission is in
// flight and no retry delay is pending.
func (r *run) dispatch(p *pipeline) {
	frames, ok := p.acc.PeekBatch()
	if !ok {
		return
	}
	if time.Now().Before(p.retryAt) {
		return
	}

	b := batch.Batch{Frames: frames, Context: r.bctx}
	if !r.gate.TrySubmit(r.ctx, b, r.submit, r.deliver) {
		return
	}
	p.acc.Pin()
	p.attempt++
	r.attempt.Store(int64(p.attempt))
}

func (r *run) handleSuccess(p *pipeline, s batch.Settlement) {
	consumed := s.Outcome.Consumed
	if consumed <= 0 {
		consumed = len(s.Batch.Frames)
	}
	p.acc.Drain(consumed)
	r.publish(p)

	attempt := p.attempt
	p.attempt = 0
	p.retryAt = time.Time{}
	p.backoff.Reset()

	r.submitted.Add(1)
	r.ctrl.log.Infof("%s", s.Outcome.Message)
	r.recordSubmission(s, attempt, false)
}

// handleFailure keeps the batch at the head of the queue so the same frames
// are submitted again once the retry delay has passed.
func (r *run) handleFailure(p *pipeline, s batch.Settlement) {
	r.failed.Add(1)

	delay := p.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = 0
	}
	p.retryAt = time.Now().Add(delay)

	if delay > 0 {
		r.ctrl.log.Errorf("Error sending batch: %v (retrying in %s)", s.Err, delay.Round(time.Millisecond))
	} else {
		r.ctrl.log.Errorf("Error sending batch: %v", s.Err)
	}
	r.recordSubmission(s, p.attempt, false)
}

// orphan reports a submission that settled after its session stopped.
func (r *run) orphan(s batch.Settlement, attempt int) {
	if s.Err != nil {
		r.ctrl.log.Warnf("Batch sent before the camera stopped failed: %v", s.Err)
	} else {
		r.ctrl.log.Infof("%s (sent before the camera stopped)", s.Outcome.Message)
	}
	r.recordSubmission(s, attempt, true)
}

func (r *run) recordSubmission(s batch.Settlement, attempt int, orphaned bool) {
	seqs := s.Batch.Seqs()
	frameSeqs := make([]int64, len(seqs))
	for i, seq := range seqs {
		frameSeqs[i] = int64(seq)
	}

	sub := database.SubmissionRecord{
		SessionID: r.id,
		Attempt:   max(attempt, 1),
		FrameSeqs: frameSeqs,
		Success:   s.Err == nil,
		Message:   s.Outcome.Message,
		Orphaned:  orphaned,
		Duration:  s.Elapsed,
		CreatedAt: time.Now(),
	}
	if s.Err != nil {
		sub.Error = s.Err.Error()
	}
	r.ctrl.record(func(ctx context.Context, rec database.Recorder) error {
		return rec.RecordSubmission(ctx, sub)
	})
}

func (r *run) record() database.SessionRecord {
	return database.SessionRecord{
		ID:        r.id,
		SubjectID: r.params.SubjectID,
		Course:    r.params.Course,
		ClassYear: r.params.ClassYear,
		Division:  r.params.Division,
		Date:      r.params.Date,
		TeacherID: r.bctx.TeacherID,
		Device:    r.ctrl.opts.DeviceName,
		StartedAt: r.startedAt,
	}
}

func (r *run) totals() database.SessionTotals {
	return database.SessionTotals{
		FramesCaptured:   int(r.captured.Load()),
		FramesDropped:    int(r.dropped.Load()),
		BatchesSubmitted: int(r.submitted.Load()),
		BatchesFailed:    int(r.failed.Load()),
	}
}
