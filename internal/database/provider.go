package database

import (
	"errors"
	"sync"
)

// ErrNotInitialized is returned when session history is requested without a database.
var ErrNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	postgresSessionStore func() SessionStore
	postgresInitialized  bool
	providerMu           sync.RWMutex
)

// RegisterPostgresBackend registers the PostgreSQL session store constructor.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(store func() SessionStore) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresSessionStore = store
	postgresInitialized = store != nil
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return postgresInitialized
}

// GetRecorder returns a Recorder from the PostgreSQL backend
func GetRecorder() (Recorder, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	return postgresSessionStore(), nil
}

// GetSessionReader returns a SessionReader from the PostgreSQL backend
func GetSessionReader() (SessionReader, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	return postgresSessionStore(), nil
}
