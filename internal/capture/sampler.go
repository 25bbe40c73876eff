package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSamplerRunning is returned by Start when the sampler is already producing frames.
var ErrSamplerRunning = errors.New("sampler already running")

// SamplerOptions controls how grabbed images are normalised.
type SamplerOptions struct {
	MaxFrameSize int // 0 keeps the original resolution
	JPEGQuality  int
	OnError      func(error) // optional, called for ticks that produced no frame
}

// SamplerStats holds sampler counters.
type SamplerStats struct {
	Produced uint64
	Failed   uint64
}

// Sampler grabs a still frame from a stream on a fixed interval and hands
// each one to a callback, in capture order.
type Sampler struct {
	opts SamplerOptions

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	produced atomic.Uint64
	failed   atomic.Uint64
}

// NewSampler creates an idle sampler.
func NewSampler(opts SamplerOptions) *Sampler {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 85
	}
	return &Sampler{opts: opts}
}

// Start begins producing a frame every interval. It fails fast with
// ErrDeviceUnavailable when there is no stream to sample.
func (s *Sampler) Start(stream Stream, interval time.Duration, onFrame func(Frame)) error {
	if stream == nil {
		return fmt.Errorf("%w: no capture surface", ErrDeviceUnavailable)
	}
	if interval <= 0 {
		return fmt.Errorf("invalid sampling interval %v", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSamplerRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx, stream, interval, onFrame, s.done)
	return nil
}

// Stop halts production. It is safe to call when not running and returns
// only after the sampling goroutine has exited.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the sampler is producing frames.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns the produced and failed tick counters.
func (s *Sampler) Stats() SamplerStats {
	return SamplerStats{Produced: s.produced.Load(), Failed: s.failed.Load()}
}

func (s *Sampler) run(ctx context.Context, stream Stream, interval time.Duration, onFrame func(Frame), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := s.grab(ctx, stream)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.failed.Add(1)
				if s.opts.OnError != nil {
					s.opts.OnError(err)
				}
				continue
			}
			seq++
			frame.Seq = seq
			s.produced.Add(1)
			onFrame(frame)
		}
	}
}

func (s *Sampler) grab(ctx context.Context, stream Stream) (Frame, error) {
	raw, err := stream.Grab(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("grabbing frame: %w", err)
	}
	data, err := Encode(raw, s.opts.MaxFrameSize, s.opts.JPEGQuality)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, CapturedAt: time.Now()}, nil
}
