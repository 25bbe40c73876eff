// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Capture constants
const (
	// BatchSize is the number of frames submitted together for recognition
	BatchSize = 7

	// SampleInterval is the cadence at which frames are grabbed from the camera
	SampleInterval = 1500 * time.Millisecond

	// MaxFrameSize is the maximum dimension (width or height) of a submitted frame
	MaxFrameSize = 1280

	// JPEGQuality is the quality used when re-encoding captured frames
	JPEGQuality = 85
)

// Session log constants
const (
	// RecentLogCount is how many log entries the capture modal shows
	RecentLogCount = 3

	// DateLayout is the date format the attendance backend expects
	DateLayout = "2006-01-02"
)
