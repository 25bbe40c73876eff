//go:build gocv

package capture

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// GoCVDevice opens a local camera through OpenCV. Only built with -tags gocv.
type GoCVDevice struct {
	index int
}

func init() {
	RegisterDriver("gocv", func(arg string) (Device, error) {
		index := 0
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid camera index %q: %w", arg, err)
			}
			index = n
		}
		return &GoCVDevice{index: index}, nil
	})
}

// Open acquires the camera. It fails when permission is denied or no device exists.
func (d *GoCVDevice) Open(ctx context.Context) (Stream, error) {
	webcam, err := gocv.OpenVideoCapture(d.index)
	if err != nil {
		return nil, fmt.Errorf("%w: opening camera %d: %w", ErrDeviceUnavailable, d.index, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("%w: camera %d did not open", ErrDeviceUnavailable, d.index)
	}
	return &gocvStream{webcam: webcam, img: gocv.NewMat()}, nil
}

type gocvStream struct {
	mu     sync.Mutex
	webcam *gocv.VideoCapture
	img    gocv.Mat
	closed bool
}

func (s *gocvStream) Grab(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: stream closed", ErrDeviceUnavailable)
	}

	if ok := s.webcam.Read(&s.img); !ok || s.img.Empty() {
		return nil, fmt.Errorf("camera returned an empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.img)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	// NativeByteBuffer memory is released by Close; copy it out first.
	return append([]byte(nil), buf.GetBytes()...), nil
}

func (s *gocvStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.img.Close()
	if err := s.webcam.Close(); err != nil {
		return fmt.Errorf("releasing camera: %w", err)
	}
	return nil
}
