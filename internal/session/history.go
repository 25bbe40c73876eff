package session

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-attendance/internal/database"
)

type historyWrite func(ctx context.Context, rec database.Recorder) error

// historyWriter applies recorder writes in order on its own goroutine, so a
// slow database never holds up the session loop or the sampler.
type historyWriter struct {
	rec   database.Recorder
	queue chan historyWrite
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

func newHistoryWriter(rec database.Recorder, size int) *historyWriter {
	w := &historyWriter{
		rec:   rec,
		queue: make(chan historyWrite, size),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *historyWriter) run() {
	defer close(w.done)
	for fn := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), database.RecordTimeout)
		if err := fn(ctx, w.rec); err != nil {
			log.Printf("Warning: failed to record session history: %v", err)
		}
		cancel()
	}
}

// enqueue never blocks. Writes that do not fit the queue are dropped.
func (w *historyWriter) enqueue(fn historyWrite) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.queue <- fn:
	default:
		n := w.dropped.Add(1)
		log.Printf("Warning: session history queue full, dropped a write (%d dropped so far)", n)
	}
}

// close stops accepting writes and waits until the queued ones are applied
// or ctx ends.
func (w *historyWriter) close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// droppedWrites returns how many writes never reached the recorder.
func (w *historyWriter) droppedWrites() int64 {
	return w.dropped.Load()
}
