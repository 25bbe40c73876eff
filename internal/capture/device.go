package capture

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrDeviceUnavailable is returned when the camera cannot be opened
// (permission denied, no such device, driver not compiled in).
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// Device is a camera that can be opened for a capture session.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an opened camera. Grab returns one encoded still image.
// Close releases the camera and must be safe to call more than once.
type Stream interface {
	Grab(ctx context.Context) ([]byte, error)
	Close() error
}

// DriverFunc builds a Device from the argument part of a device spec.
type DriverFunc func(arg string) (Device, error)

var (
	drivers   = map[string]DriverFunc{}
	driversMu sync.RWMutex
)

// RegisterDriver makes a device driver available under the given spec prefix.
func RegisterDriver(name string, fn DriverFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = fn
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenDevice resolves a device spec of the form "<driver>:<arg>",
// e.g. "dir:./frames", "cmd:fswebcam -q --no-banner -" or "gocv:0".
func OpenDevice(spec string) (Device, error) {
	name, arg, ok := strings.Cut(spec, ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: invalid device spec %q (want driver:arg)", ErrDeviceUnavailable, spec)
	}

	driversMu.RLock()
	fn, found := drivers[name]
	driversMu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: driver %q not available (have %s)",
			ErrDeviceUnavailable, name, strings.Join(Drivers(), ", "))
	}

	dev, err := fn(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return dev, nil
}

func init() {
	RegisterDriver("dir", func(arg string) (Device, error) { return NewDirectoryDevice(arg), nil })
	RegisterDriver("cmd", func(arg string) (Device, error) { return NewCommandDevice(arg) })
}
