package database

import "time"

// Query limits
const (
	// DefaultSessionListLimit is used when a caller asks for no specific limit
	DefaultSessionListLimit = 50

	// RecordTimeout bounds a single history write
	RecordTimeout = 5 * time.Second

	// RecordQueueSize is how many history writes may wait for the database
	// before new ones are dropped
	RecordQueueSize = 256
)
