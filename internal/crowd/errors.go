package crowd

import "errors"

// Sentinel errors surfaced by the ingestion pipeline. Callers match with
// errors.Is; wrapped messages carry the detail.
var (
	// ErrInvalidInput rejects malformed observations before any store
	// mutation. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown event id.
	ErrNotFound = errors.New("event not found")

	// ErrStorageTimeout marks a durable append that exceeded its deadline
	// after all retries.
	ErrStorageTimeout = errors.New("storage timeout")

	// ErrStorageUnavailable marks a durable append that failed for
	// reasons other than a deadline after all retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
