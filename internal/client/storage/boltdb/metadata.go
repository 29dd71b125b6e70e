package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/pipecalc/pipesync/internal/models"
)

const (
	keyWatermark   = "sync_watermark"
	keyLastSession = "last_sync_session"
)

// SaveWatermark saves the latest server timestamp incorporated into the local store
func (s *Storage) SaveWatermark(ctx context.Context, timestamp int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем int64 в bytes
		timestampBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(timestampBytes, uint64(timestamp))

		if err := bucket.Put([]byte(keyWatermark), timestampBytes); err != nil {
			return fmt.Errorf("failed to save watermark: %w", err)
		}

		return nil
	})
}

// GetWatermark retrieves the delta-download watermark
// Returns 0 if no sync has been performed yet
func (s *Storage) GetWatermark(ctx context.Context) (int64, error) {
	var timestamp int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		timestampBytes := bucket.Get([]byte(keyWatermark))
		if timestampBytes == nil {
			// Первая синхронизация, качаем всё
			timestamp = 0
			return nil
		}

		timestamp = int64(binary.BigEndian.Uint64(timestampBytes))
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get watermark: %w", err)
	}

	return timestamp, nil
}

// SaveLastSession stores the result of the latest sync session
func (s *Storage) SaveLastSession(ctx context.Context, session *models.SyncSession) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal sync session: %w", err)
		}

		if err := bucket.Put([]byte(keyLastSession), data); err != nil {
			return fmt.Errorf("failed to save sync session: %w", err)
		}

		return nil
	})
}

// GetLastSession retrieves the latest sync session.
// Returns nil without error if no session has been recorded yet
func (s *Storage) GetLastSession(ctx context.Context) (*models.SyncSession, error) {
	var session *models.SyncSession

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(keyLastSession))
		if data == nil {
			return nil
		}

		session = &models.SyncSession{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal sync session: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get sync session: %w", err)
	}

	return session, nil
}
