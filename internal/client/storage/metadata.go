package storage

import (
	"context"

	"github.com/pipecalc/pipesync/internal/models"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing sync metadata on client
type MetadataStorage interface {
	// SaveWatermark saves the latest server timestamp successfully
	// incorporated into the local store
	SaveWatermark(ctx context.Context, timestamp int64) error

	// GetWatermark retrieves the watermark.
	// Returns 0 if no sync has been performed yet
	GetWatermark(ctx context.Context) (int64, error)

	// SaveLastSession stores the result of the latest sync session for UI display
	SaveLastSession(ctx context.Context, session *models.SyncSession) error

	// GetLastSession retrieves the latest sync session.
	// Returns nil without error if no session has been recorded yet
	GetLastSession(ctx context.Context) (*models.SyncSession, error)
}
