package batch

import (
	"fmt"
	"slices"

	"github.com/kozaktomas/face-attendance/internal/capture"
)

// Policy decides what happens when a bounded queue is full.
type Policy string

const (
	// PolicyUnbounded never drops frames; the queue grows while submissions lag.
	PolicyUnbounded Policy = "unbounded"
	// PolicyDropOldest evicts the oldest queued frame to admit a new one.
	PolicyDropOldest Policy = "drop-oldest"
	// PolicyDropNewest rejects new frames while the queue is full.
	PolicyDropNewest Policy = "drop-newest"
)

// ParsePolicy validates a policy name. Empty means unbounded.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyUnbounded:
		return PolicyUnbounded, nil
	case PolicyDropOldest, PolicyDropNewest:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown queue policy %q", s)
}

// Accumulator is a FIFO queue of frames with a fixed batch size.
// It is owned by a single goroutine and does no locking.
type Accumulator struct {
	size    int
	policy  Policy
	limit   int
	frames  []capture.Frame
	dropped int
	pinned  int // leading frames handed out for submission
}

// NewAccumulator creates an unbounded accumulator producing batches of size frames.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		size = 1
	}
	return &Accumulator{size: size, policy: PolicyUnbounded}
}

// WithLimit bounds the queue. The limit is raised to the batch size if lower,
// so a full batch can always form.
func (a *Accumulator) WithLimit(policy Policy, limit int) *Accumulator {
	a.policy = policy
	a.limit = max(limit, a.size)
	return a
}

// Push appends a frame to the tail of the queue. Under drop-oldest the
// oldest unpinned frame is evicted; when every queued frame is pinned the new
// frame is rejected instead.
func (a *Accumulator) Push(f capture.Frame) {
	if a.policy != PolicyUnbounded && len(a.frames) >= a.limit {
		a.dropped++
		if a.policy == PolicyDropNewest || a.pinned >= len(a.frames) {
			return
		}
		a.frames = slices.Delete(a.frames, a.pinned, a.pinned+1)
	}
	a.frames = append(a.frames, f)
}

// Pin marks the leading batch as submitted. Pinned frames are never evicted,
// so a retry resends the same frames and Drain removes exactly what was sent.
func (a *Accumulator) Pin() {
	a.pinned = min(a.size, len(a.frames))
}

// Pinned returns the number of pinned leading frames.
func (a *Accumulator) Pinned() int { return a.pinned }

// PeekBatch returns the leading batch-size frames without removing them.
// ok is false while fewer than batch-size frames are queued.
func (a *Accumulator) PeekBatch() ([]capture.Frame, bool) {
	if len(a.frames) < a.size {
		return nil, false
	}
	out := make([]capture.Frame, a.size)
	copy(out, a.frames[:a.size])
	return out, true
}

// Drain removes and discards the leading count frames.
func (a *Accumulator) Drain(count int) {
	if count <= 0 {
		return
	}
	a.pinned = max(a.pinned-count, 0)
	if count >= len(a.frames) {
		a.frames = a.frames[:0]
		return
	}
	// Copy down so the backing array does not pin drained frames.
	n := copy(a.frames, a.frames[count:])
	clear(a.frames[n:])
	a.frames = a.frames[:n]
}

// Reset discards every queued frame.
func (a *Accumulator) Reset() {
	clear(a.frames)
	a.frames = a.frames[:0]
	a.pinned = 0
}

// Len returns the number of queued frames.
func (a *Accumulator) Len() int { return len(a.frames) }

// Size returns the batch size.
func (a *Accumulator) Size() int { return a.size }

// Dropped returns how many frames a bounded policy has discarded.
func (a *Accumulator) Dropped() int { return a.dropped }

// Frames returns a copy of the queue, oldest first.
func (a *Accumulator) Frames() []capture.Frame {
	out := make([]capture.Frame, len(a.frames))
	copy(out, a.frames)
	return out
}
