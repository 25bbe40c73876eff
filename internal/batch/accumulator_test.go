package batch

import (
	"slices"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/capture"
)

func frame(seq uint64) capture.Frame {
	return capture.Frame{Seq: seq, Data: []byte{byte(seq)}}
}

func seqsOf(frames []capture.Frame) []uint64 {
	out := make([]uint64, len(frames))
	for i, f := range frames {
		out[i] = f.Seq
	}
	return out
}

func pushN(a *Accumulator, from, to uint64) {
	for i := from; i <= to; i++ {
		a.Push(frame(i))
	}
}

func TestAccumulator_ReadyIffSevenQueued(t *testing.T) {
	for n := range 20 {
		a := NewAccumulator(7)
		pushN(a, 1, uint64(n))

		got, ok := a.PeekBatch()
		if ok != (n >= 7) {
			t.Errorf("n=%d: expected ready=%v, got %v", n, n >= 7, ok)
			continue
		}
		if !ok {
			continue
		}
		want := []uint64{1, 2, 3, 4, 5, 6, 7}
		if !slices.Equal(seqsOf(got), want) {
			t.Errorf("n=%d: expected oldest frames %v, got %v", n, want, seqsOf(got))
		}
		if a.Len() != n {
			t.Errorf("n=%d: peek must not remove frames, len=%d", n, a.Len())
		}
	}
}

func TestAccumulator_DrainPreservesOrder(t *testing.T) {
	for n := 7; n < 20; n++ {
		a := NewAccumulator(7)
		pushN(a, 1, uint64(n))

		a.Drain(7)

		if a.Len() != n-7 {
			t.Errorf("n=%d: expected len %d, got %d", n, n-7, a.Len())
		}
		for i, f := range a.Frames() {
			if f.Seq != uint64(i+8) {
				t.Errorf("n=%d: position %d expected seq %d, got %d", n, i, i+8, f.Seq)
			}
		}
	}
}

func TestAccumulator_Scenario(t *testing.T) {
	a := NewAccumulator(7)
	pushN(a, 1, 9)

	batch, ok := a.PeekBatch()
	if !ok {
		t.Fatal("expected batch ready after 9 frames")
	}
	if !slices.Equal(seqsOf(batch), []uint64{1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("expected F1..F7, got %v", seqsOf(batch))
	}

	a.Drain(7)
	if !slices.Equal(seqsOf(a.Frames()), []uint64{8, 9}) {
		t.Fatalf("expected [F8 F9], got %v", seqsOf(a.Frames()))
	}

	a.Push(frame(10))
	if !slices.Equal(seqsOf(a.Frames()), []uint64{8, 9, 10}) {
		t.Fatalf("expected [F8 F9 F10], got %v", seqsOf(a.Frames()))
	}
	if _, ok := a.PeekBatch(); ok {
		t.Error("expected not ready with 3 frames")
	}
}

func TestAccumulator_PeekIsACopy(t *testing.T) {
	a := NewAccumulator(2)
	pushN(a, 1, 2)

	got, _ := a.PeekBatch()
	got[0] = frame(99)

	again, _ := a.PeekBatch()
	if again[0].Seq != 1 {
		t.Errorf("mutating a peeked batch changed the queue: %v", seqsOf(again))
	}
}

func TestAccumulator_DrainEdgeCases(t *testing.T) {
	a := NewAccumulator(7)
	pushN(a, 1, 3)

	a.Drain(0)
	if a.Len() != 3 {
		t.Errorf("Drain(0) should be a no-op, len=%d", a.Len())
	}

	a.Drain(10)
	if a.Len() != 0 {
		t.Errorf("Drain beyond length should empty the queue, len=%d", a.Len())
	}

	pushN(a, 4, 5)
	a.Reset()
	if a.Len() != 0 {
		t.Errorf("Reset should empty the queue, len=%d", a.Len())
	}
}

func TestAccumulator_UnboundedByDefault(t *testing.T) {
	a := NewAccumulator(7)
	pushN(a, 1, 1000)
	if a.Len() != 1000 {
		t.Errorf("expected 1000 queued frames, got %d", a.Len())
	}
	if a.Dropped() != 0 {
		t.Errorf("expected no drops, got %d", a.Dropped())
	}
}

func TestAccumulator_BoundedPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []uint64
	}{
		{"drop oldest", PolicyDropOldest, []uint64{4, 5, 6, 7, 8, 9, 10}},
		{"drop newest", PolicyDropNewest, []uint64{1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAccumulator(7).WithLimit(tt.policy, 3) // raised to 7
			pushN(a, 1, 10)

			if !slices.Equal(seqsOf(a.Frames()), tt.want) {
				t.Errorf("expected %v, got %v", tt.want, seqsOf(a.Frames()))
			}
			if a.Dropped() != 3 {
				t.Errorf("expected 3 dropped frames, got %d", a.Dropped())
			}
		})
	}
}

func TestAccumulator_DropOldestKeepsPinnedBatch(t *testing.T) {
	a := NewAccumulator(7).WithLimit(PolicyDropOldest, 9)
	pushN(a, 1, 7)
	a.Pin()

	// Frames 8 and 9 fill the queue; 10 and 11 evict the oldest unpinned frames.
	pushN(a, 8, 11)

	batch, ok := a.PeekBatch()
	if !ok || !slices.Equal(seqsOf(batch), []uint64{1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("expected pinned batch 1..7, got %v", seqsOf(batch))
	}
	if !slices.Equal(seqsOf(a.Frames()), []uint64{1, 2, 3, 4, 5, 6, 7, 10, 11}) {
		t.Errorf("unexpected queue %v", seqsOf(a.Frames()))
	}
	if a.Dropped() != 2 {
		t.Errorf("expected 2 dropped frames, got %d", a.Dropped())
	}

	a.Drain(7)
	if a.Pinned() != 0 {
		t.Errorf("expected nothing pinned after drain, got %d", a.Pinned())
	}
	if !slices.Equal(seqsOf(a.Frames()), []uint64{10, 11}) {
		t.Errorf("expected 10, 11 left, got %v", seqsOf(a.Frames()))
	}
}

func TestAccumulator_DropOldestAllPinnedRejectsNew(t *testing.T) {
	a := NewAccumulator(7).WithLimit(PolicyDropOldest, 7)
	pushN(a, 1, 7)
	a.Pin()
	pushN(a, 8, 9)

	if !slices.Equal(seqsOf(a.Frames()), []uint64{1, 2, 3, 4, 5, 6, 7}) {
		t.Errorf("expected pinned frames untouched, got %v", seqsOf(a.Frames()))
	}
	if a.Dropped() != 2 {
		t.Errorf("expected 2 dropped frames, got %d", a.Dropped())
	}

	a.Reset()
	if a.Pinned() != 0 || a.Len() != 0 {
		t.Error("expected Reset to clear the queue and pins")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyUnbounded, false},
		{"unbounded", PolicyUnbounded, false},
		{"drop-oldest", PolicyDropOldest, false},
		{"drop-newest", PolicyDropNewest, false},
		{"drop-random", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
