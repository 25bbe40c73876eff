package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

type fakeStream struct {
	img    []byte
	closes atomic.Int32
}

func (s *fakeStream) Grab(ctx context.Context) ([]byte, error) {
	return s.img, nil
}

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeDevice struct {
	stream *fakeStream
	err    error
	opens  atomic.Int32
}

func (d *fakeDevice) Open(ctx context.Context) (capture.Stream, error) {
	d.opens.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeBackend struct {
	mu             sync.Mutex
	markAbsent     []batch.Context
	markAbsentErr  error
	markAbsentGate chan struct{} // closed to let a held mark-absent answer
	markAbsentIn   chan struct{}
	attempts       [][]uint64
	failNext       int
	hold           chan struct{}
	entered        chan struct{}
	inFlight       int
	maxInFlight    int
}

func (b *fakeBackend) MarkAbsent(ctx context.Context, bc batch.Context) (*attendance.MessageResponse, error) {
	b.mu.Lock()
	b.markAbsent = append(b.markAbsent, bc)
	gate, in, err := b.markAbsentGate, b.markAbsentIn, b.markAbsentErr
	b.mu.Unlock()

	if gate != nil {
		in <- struct{}{}
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &attendance.MessageResponse{Message: "All 3 students marked absent."}, nil
}

// holdMarkAbsent blocks mark-absent until the returned release func runs.
func (b *fakeBackend) holdMarkAbsent(t *testing.T) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markAbsentGate = make(chan struct{})
	b.markAbsentIn = make(chan struct{}, 4)
	var once sync.Once
	gate := b.markAbsentGate
	release := func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return b.markAbsentIn, release
}

func (b *fakeBackend) SubmitFacialBatch(ctx context.Context, bt batch.Batch) (*attendance.FacialBatchResponse, error) {
	b.mu.Lock()
	b.attempts = append(b.attempts, bt.Seqs())
	n := len(b.attempts)
	b.inFlight++
	b.maxInFlight = max(b.maxInFlight, b.inFlight)
	hold, entered := b.hold, b.entered
	fail := b.failNext > 0
	if fail {
		b.failNext--
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if hold != nil {
		entered <- struct{}{}
		<-hold
	}
	if fail {
		return nil, &attendance.TransportError{Op: "POST attendance/batch_facial", Err: errors.New("connection refused")}
	}
	return &attendance.FacialBatchResponse{Message: fmt.Sprintf("batch %d processed", n)}, nil
}

// holdSubmissions blocks submissions until the returned release func runs.
func (b *fakeBackend) holdSubmissions(t *testing.T) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hold = make(chan struct{})
	b.entered = make(chan struct{}, 16)
	var once sync.Once
	hold := b.hold
	release := func() { once.Do(func() { close(hold) }) }
	t.Cleanup(release)
	return b.entered, release
}

func (b *fakeBackend) Attempts() [][]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.attempts)
}

func (b *fakeBackend) MarkAbsentCalls() []batch.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.markAbsent)
}

func (b *fakeBackend) MaxInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

func seqRange(from, to uint64) []uint64 {
	var out []uint64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func logContains(l *Log, level Level, substr string) bool {
	for _, e := range l.All() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func validParams() Params {
	return Params{SubjectID: "SUB1", Course: "BSC IT", ClassYear: "FY", Division: "A", Date: "2026-10-16"}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Interval = 2 * time.Millisecond
	opts.Sampler.MaxFrameSize = 0
	return opts
}

func newTestController(t *testing.T, opts Options) (*Controller, *fakeDevice, *fakeBackend) {
	t.Helper()
	dev := &fakeDevice{stream: &fakeStream{img: testJPEG(t)}}
	backend := &fakeBackend{}
	c := NewController(Identity{TeacherID: "T001"}, backend, dev, opts)
	t.Cleanup(func() { c.Stop(context.Background()) })
	return c, dev, backend
}

// heldRecorder passes writes to a store, holding submissions until Release.
type heldRecorder struct {
	database.Recorder
	release chan struct{}
	once    sync.Once
	waiting atomic.Int32
}

func newHeldRecorder(t *testing.T, store database.Recorder) *heldRecorder {
	r := &heldRecorder{Recorder: store, release: make(chan struct{})}
	t.Cleanup(r.Release)
	return r
}

func (r *heldRecorder) Release() {
	r.once.Do(func() { close(r.release) })
}

func (r *heldRecorder) RecordSubmission(ctx context.Context, sub database.SubmissionRecord) error {
	r.waiting.Add(1)
	<-r.release
	return r.Recorder.RecordSubmission(ctx, sub)
}
