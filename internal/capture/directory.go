package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirectoryDevice replays the image files of a directory in name order,
// looping forever. It stands in for a camera during rehearsals and tests.
type DirectoryDevice struct {
	dir string
}

// NewDirectoryDevice creates a device replaying images from dir.
func NewDirectoryDevice(dir string) *DirectoryDevice {
	return &DirectoryDevice{dir: dir}
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

// Open lists the directory. A missing or empty directory is unavailable.
func (d *DirectoryDevice) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %w", ErrDeviceUnavailable, d.dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(d.dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, d.dir)
	}
	sort.Strings(files)

	return &directoryStream{files: files}, nil
}

type directoryStream struct {
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
}

func (s *directoryStream) Grab(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: stream closed", ErrDeviceUnavailable)
	}

	path := s.files[s.next%len(s.files)]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame %s: %w", path, err)
	}
	return data, nil
}

func (s *directoryStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
