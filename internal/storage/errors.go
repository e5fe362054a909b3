package storage

import "errors"

// Sentinel errors for the storage package. Callers match them with errors.Is;
// every one of them is recoverable by falling back to a default value.
var (
	// ErrNotFound is returned when a persisted file does not exist yet.
	ErrNotFound = errors.New("file not found")

	// ErrCorrupt is returned when a persisted file exists but cannot be decoded.
	ErrCorrupt = errors.New("corrupt file")

	// ErrSessionIDRequired is returned when a per-session file is addressed
	// without an ID.
	ErrSessionIDRequired = errors.New("session ID is required")
)
