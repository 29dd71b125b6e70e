package storage

import "errors"

// Common client storage errors
var (
	// ErrRecordNotFound indicates that record was not found in the local store
	ErrRecordNotFound = errors.New("record not found")

	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrIntegrityCheckFailed indicates that the local store failed verification
	// and destructive operations must not proceed
	ErrIntegrityCheckFailed = errors.New("storage integrity check failed")

	// ErrInvalidRecord indicates that a record violates store invariants
	// (unknown kind/status, updated_at before created_at)
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnsyncedLocalChanges indicates that applying a server record would
	// overwrite a local mutation that has not reached the server yet
	ErrUnsyncedLocalChanges = errors.New("record has unsynced local changes")
)
