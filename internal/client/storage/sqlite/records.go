package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
)

// Проверка реализации интерфейса на этапе компиляции
var _ storage.RecordStorage = (*Storage)(nil)

const recordColumns = `id, client_id, kind, payload, sync_status, server_id,
	server_timestamp, base_fingerprint, last_error, deleted, created_at, updated_at`

// Save stores a new record
func (s *Storage) Save(ctx context.Context, record *models.Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	unlock := s.lockRecord(record.ID)
	defer unlock()

	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ClientID,
		string(record.Kind),
		[]byte(record.Payload),
		string(record.SyncStatus),
		record.ServerID,
		record.ServerTimestamp,
		record.BaseFingerprint,
		record.LastError,
		boolToInt(record.Deleted),
		record.CreatedAt.UnixMilli(),
		record.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// Get retrieves a record by its local id
func (s *Storage) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`
	return s.getOne(ctx, query, id)
}

// GetByClientID retrieves a record by its cross-device client id
func (s *Storage) GetByClientID(ctx context.Context, clientID string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE client_id = ?`
	return s.getOne(ctx, query, clientID)
}

func (s *Storage) getOne(ctx context.Context, query string, arg any) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, query, arg)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

// Update replaces a stored record atomically
func (s *Storage) Update(ctx context.Context, record *models.Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	unlock := s.lockRecord(record.ID)
	defer unlock()

	query := `
		UPDATE records
		SET client_id = ?, kind = ?, payload = ?, sync_status = ?,
		    server_id = ?, server_timestamp = ?, base_fingerprint = ?,
		    last_error = ?, deleted = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		record.ClientID,
		string(record.Kind),
		[]byte(record.Payload),
		string(record.SyncStatus),
		record.ServerID,
		record.ServerTimestamp,
		record.BaseFingerprint,
		record.LastError,
		boolToInt(record.Deleted),
		record.UpdatedAt.UnixMilli(),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	return requireRowAffected(result)
}

// Delete removes a record permanently
func (s *Storage) Delete(ctx context.Context, id string) error {
	unlock := s.lockRecord(id)
	defer unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return requireRowAffected(result)
}

// Query returns records matching the filter, ordered by updated_at desc
func (s *Storage) Query(ctx context.Context, filter storage.QueryFilter) ([]*models.Record, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		conds = append(conds, "sync_status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"

	if filter.Limit > 0 || filter.Offset > 0 {
		// LIMIT -1 в SQLite означает «без ограничения», нужен для OFFSET без LIMIT
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// MarkSyncing transitions a record to the syncing status
func (s *Storage) MarkSyncing(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusSyncing, func(r *models.Record) {})
}

// MarkSynced records a successful server acknowledgment
func (s *Storage) MarkSynced(ctx context.Context, id, serverID string, serverTimestamp int64, baseFingerprint string) error {
	return s.transition(ctx, id, models.StatusSynced, func(r *models.Record) {
		r.ServerID = serverID
		r.ServerTimestamp = serverTimestamp
		r.BaseFingerprint = baseFingerprint
		r.LastError = ""
	})
}

// MarkFailed transitions a record to failed and remembers the error
func (s *Storage) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.transition(ctx, id, models.StatusFailed, func(r *models.Record) {
		r.LastError = errMsg
	})
}

// MarkConflict transitions a record to conflict
func (s *Storage) MarkConflict(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusConflict, func(r *models.Record) {})
}

// MarkPending re-queues a failed or conflicted record for another sync
func (s *Storage) MarkPending(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusPending, func(r *models.Record) {
		r.LastError = ""
	})
}

// transition читает текущий статус, проверяет допустимость перехода по
// жизненному циклу и применяет изменение под построчной блокировкой.
func (s *Storage) transition(ctx context.Context, id string, next models.SyncStatus, apply func(*models.Record)) error {
	unlock := s.lockRecord(id)
	defer unlock()

	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !record.SyncStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: transition %s -> %s for record %s",
			storage.ErrInvalidRecord, record.SyncStatus, next, id)
	}

	record.SyncStatus = next
	apply(record)

	query := `
		UPDATE records
		SET sync_status = ?, server_id = ?, server_timestamp = ?,
		    base_fingerprint = ?, last_error = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(record.SyncStatus),
		record.ServerID,
		record.ServerTimestamp,
		record.BaseFingerprint,
		record.LastError,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record status: %w", err)
	}

	return requireRowAffected(result)
}

// ApplyServerRecord overwrites (or creates) the local copy from a downloaded
// server record and marks it synced. Перед первой перезаписью проверяет
// целостность хранилища: поврежденный store не должен затирать данные сервера.
func (s *Storage) ApplyServerRecord(ctx context.Context, record *models.Record) error {
	if err := s.ensureVerified(ctx); err != nil {
		return err
	}

	if record.ClientID == "" || !record.Kind.Valid() {
		return fmt.Errorf("%w: server record missing client_id or kind", storage.ErrInvalidRecord)
	}

	fingerprint, err := models.Fingerprint(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to fingerprint server payload: %w", err)
	}

	found, err := s.GetByClientID(ctx, record.ClientID)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return err
	}

	if found == nil {
		// Новая запись с другого устройства
		unlock := s.lockRecord(record.ID)
		defer unlock()

		query := `
			INSERT INTO records (` + recordColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := s.db.ExecContext(ctx, query,
			record.ID,
			record.ClientID,
			string(record.Kind),
			[]byte(record.Payload),
			string(models.StatusSynced),
			record.ServerID,
			record.ServerTimestamp,
			fingerprint,
			"",
			boolToInt(record.Deleted),
			record.CreatedAt.UnixMilli(),
			record.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert server record: %w", err)
		}

		return nil
	}

	// Та же построчная блокировка по локальному id, что у Save/Update/
	// transition; поиск выше шел вне блокировки, поэтому перечитываем под ней
	unlock := s.lockRecord(found.ID)
	defer unlock()

	existing, err := s.Get(ctx, found.ID)
	if err != nil {
		return err
	}

	// Незагруженная локальная правка не перезаписывается молча: если
	// содержимое разошлось с серверной копией, запись пойдет через
	// детектор конфликтов следующей сессии
	if existing.SyncStatus != models.StatusSynced {
		localFP, err := models.Fingerprint(existing.Payload)
		if err != nil {
			return fmt.Errorf("failed to fingerprint local payload: %w", err)
		}
		if localFP != fingerprint || existing.Deleted != record.Deleted {
			return fmt.Errorf("%w: record %s is %s",
				storage.ErrUnsyncedLocalChanges, existing.ID, existing.SyncStatus)
		}
	}

	// Локальный id и created_at сохраняются, серверная копия побеждает
	query := `
		UPDATE records
		SET kind = ?, payload = ?, sync_status = ?, server_id = ?,
		    server_timestamp = ?, base_fingerprint = ?, last_error = '',
		    deleted = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(record.Kind),
		[]byte(record.Payload),
		string(models.StatusSynced),
		record.ServerID,
		record.ServerTimestamp,
		fingerprint,
		boolToInt(record.Deleted),
		record.UpdatedAt.UnixMilli(),
		existing.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to apply server record: %w", err)
	}

	return requireRowAffected(result)
}

// MaxServerTimestamp returns the maximum server_timestamp among local records
func (s *Storage) MaxServerTimestamp(ctx context.Context) (int64, error) {
	var ts int64

	query := `SELECT COALESCE(MAX(server_timestamp), 0) FROM records`
	if err := s.db.QueryRowContext(ctx, query).Scan(&ts); err != nil {
		return 0, fmt.Errorf("failed to get max server timestamp: %w", err)
	}

	return ts, nil
}

// IntegrityCheck verifies the store structure and row invariants
func (s *Storage) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check;`).Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", storage.ErrIntegrityCheckFailed, result)
	}

	// Строчные инварианты: валидные статус и вид, synced-записи обязаны
	// иметь server_id и baseline-отпечаток
	query := `
		SELECT COUNT(*) FROM records
		WHERE id = '' OR client_id = ''
		   OR sync_status NOT IN (?, ?, ?, ?, ?)
		   OR kind NOT IN (?, ?)
		   OR (sync_status = ? AND (server_id = '' OR base_fingerprint = ''))
	`

	var violations int
	err := s.db.QueryRowContext(ctx, query,
		string(models.StatusPending),
		string(models.StatusSyncing),
		string(models.StatusSynced),
		string(models.StatusFailed),
		string(models.StatusConflict),
		string(models.KindCalculationRecord),
		string(models.KindParameterSet),
		string(models.StatusSynced),
	).Scan(&violations)
	if err != nil {
		return fmt.Errorf("failed to check row invariants: %w", err)
	}

	if violations > 0 {
		return fmt.Errorf("%w: %d records violate invariants", storage.ErrIntegrityCheckFailed, violations)
	}

	return nil
}

// ensureVerified выполняет проверку целостности один раз за время жизни
// Storage, лениво перед первой деструктивной операцией.
func (s *Storage) ensureVerified(ctx context.Context) error {
	s.verifyOnce.Do(func() {
		s.verifyErr = s.IntegrityCheck(ctx)
	})
	return s.verifyErr
}

func validateRecord(record *models.Record) error {
	switch {
	case record == nil:
		return fmt.Errorf("%w: record is nil", storage.ErrInvalidRecord)
	case record.ID == "":
		return fmt.Errorf("%w: empty id", storage.ErrInvalidRecord)
	case record.ClientID == "":
		return fmt.Errorf("%w: empty client_id", storage.ErrInvalidRecord)
	case !record.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", storage.ErrInvalidRecord, record.Kind)
	case !record.SyncStatus.Valid():
		return fmt.Errorf("%w: unknown sync status %q", storage.ErrInvalidRecord, record.SyncStatus)
	}
	return nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		record    models.Record
		kind      string
		payload   []byte
		status    string
		deleted   int
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(
		&record.ID,
		&record.ClientID,
		&kind,
		&payload,
		&status,
		&record.ServerID,
		&record.ServerTimestamp,
		&record.BaseFingerprint,
		&record.LastError,
		&deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = models.RecordKind(kind)
	record.Payload = json.RawMessage(payload)
	record.SyncStatus = models.SyncStatus(status)
	record.Deleted = deleted != 0
	record.CreatedAt = time.UnixMilli(createdAt)
	record.UpdatedAt = time.UnixMilli(updatedAt)

	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
