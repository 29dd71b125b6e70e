package storage

import (
	"context"

	"github.com/pipecalc/pipesync/internal/models"
)

// QueryFilter задает условия выборки записей из локального хранилища.
// Нулевые значения Kind/Status означают «любой».
type QueryFilter struct {
	Kind   models.RecordKind
	Status models.SyncStatus
	Limit  int // 0 значит без ограничения
	Offset int
}

// RecordStorage defines interface for the local record store.
// Это единственный владелец персистентных записей: очередь синхронизации
// держит только ссылки по ID.
type RecordStorage interface {
	// Save stores a new record. Fails without side effects if a record
	// with the same id already exists or the record is invalid.
	Save(ctx context.Context, record *models.Record) error

	// Get retrieves a record by its local id.
	// Returns ErrRecordNotFound if record doesn't exist.
	Get(ctx context.Context, id string) (*models.Record, error)

	// GetByClientID retrieves a record by its cross-device client id.
	// Returns ErrRecordNotFound if record doesn't exist.
	GetByClientID(ctx context.Context, clientID string) (*models.Record, error)

	// Update replaces a stored record atomically. The record must already
	// exist; on failure no partial state is observable.
	Update(ctx context.Context, record *models.Record) error

	// Delete removes a record permanently. Returns ErrRecordNotFound
	// if record doesn't exist.
	Delete(ctx context.Context, id string) error

	// Query returns records matching the filter, ordered by updated_at desc.
	Query(ctx context.Context, filter QueryFilter) ([]*models.Record, error)

	// MarkSyncing transitions a record to the syncing status.
	MarkSyncing(ctx context.Context, id string) error

	// MarkSynced records a successful server acknowledgment: sets server id,
	// server timestamp and the payload fingerprint that becomes the new
	// conflict-detection baseline.
	MarkSynced(ctx context.Context, id, serverID string, serverTimestamp int64, baseFingerprint string) error

	// MarkFailed transitions a record to failed and remembers the error for UI.
	MarkFailed(ctx context.Context, id, errMsg string) error

	// MarkConflict transitions a record to conflict. The record is left
	// untouched otherwise: nothing is overwritten until the user resolves it.
	MarkConflict(ctx context.Context, id string) error

	// MarkPending re-queues a failed or conflicted record for another sync.
	MarkPending(ctx context.Context, id string) error

	// ApplyServerRecord overwrites (or creates) the local copy from a
	// downloaded server record and marks it synced. Refuses to run if the
	// store fails its integrity check, and returns ErrUnsyncedLocalChanges
	// if the local copy holds an unsynced mutation whose content differs
	// from the server copy.
	ApplyServerRecord(ctx context.Context, record *models.Record) error

	// MaxServerTimestamp returns the максимальный server_timestamp среди
	// локальных записей, watermark для запроса дельты.
	MaxServerTimestamp(ctx context.Context) (int64, error)

	// IntegrityCheck verifies the store structure and row invariants.
	// Returns ErrIntegrityCheckFailed (wrapped) on failure.
	IntegrityCheck(ctx context.Context) error
}
