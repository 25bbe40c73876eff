package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CommandDevice captures each frame by running an external tool that writes a
// JPEG to stdout, e.g. "fswebcam -q --no-banner -" or "rpicam-jpeg -n -t 1 -o -".
type CommandDevice struct {
	name string
	args []string
}

// NewCommandDevice parses a whitespace-separated command line.
func NewCommandDevice(cmdline string) (*CommandDevice, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("empty capture command")
	}
	return &CommandDevice{name: fields[0], args: fields[1:]}, nil
}

// Open verifies the capture tool is installed.
func (d *CommandDevice) Open(ctx context.Context) (Stream, error) {
	path, err := exec.LookPath(d.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %w", ErrDeviceUnavailable, d.name, err)
	}
	return &commandStream{path: path, args: d.args}, nil
}

type commandStream struct {
	path string
	args []string

	mu     sync.Mutex
	closed bool
}

func (s *commandStream) Grab(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: stream closed", ErrDeviceUnavailable)
	}

	cmd := exec.CommandContext(ctx, s.path, s.args...) //nolint:gosec // command comes from operator configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("capture command produced no image")
	}
	return stdout.Bytes(), nil
}

func (s *commandStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
