package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// SubmitFunc sends one batch to the recognition backend.
type SubmitFunc func(ctx context.Context, b Batch) (Outcome, error)

// Settlement is the result of one submission attempt.
type Settlement struct {
	Batch   Batch
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// Gate admits at most one submission at a time. It never queues: a call made
// while a submission is outstanding is skipped.
type Gate struct {
	inFlight atomic.Bool
}

// TrySubmit runs fn on its own goroutine unless a submission is already
// outstanding, in which case it returns false.
//
// The settlement is handed to deliver exactly once. When deliver returns true
// the receiver owns the gate and must call Release; when it returns false the
// receiver is gone and the gate releases itself.
func (g *Gate) TrySubmit(ctx context.Context, b Batch, fn SubmitFunc, deliver func(Settlement) bool) bool {
	if !g.inFlight.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		s := Settlement{Batch: b}
		start := time.Now()
		defer func() {
			s.Elapsed = time.Since(start)
			if r := recover(); r != nil {
				s.Outcome = Outcome{}
				s.Err = fmt.Errorf("submission panicked: %v", r)
			}
			if !deliver(s) {
				g.Release()
			}
		}()
		s.Outcome, s.Err = fn(ctx, b)
	}()
	return true
}

// Release frees the gate for the next submission.
func (g *Gate) Release() {
	g.inFlight.Store(false)
}

// InFlight reports whether a submission is outstanding.
func (g *Gate) InFlight() bool {
	return g.inFlight.Load()
}
