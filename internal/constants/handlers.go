// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Backend request constants
const (
	// MarkAbsentTimeout bounds the mark-absent precondition call
	MarkAbsentTimeout = 30 * time.Second

	// GateRequestTimeout bounds attendance window status and toggle calls
	GateRequestTimeout = 15 * time.Second
)

// Web constants
const (
	// MaxRequestBodySize is the maximum accepted JSON request body (1MB)
	MaxRequestBodySize = 1 << 20

	// WebSocketWriteTimeout bounds a single websocket write
	WebSocketWriteTimeout = 10 * time.Second
)
