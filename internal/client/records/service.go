// Package records предоставляет прикладной API над Local Store для UI:
// создание, правка и мягкое удаление записей с автоматической
// постановкой в очередь синхронизации.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipecalc/pipesync/internal/client/queue"
	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
	"github.com/pipecalc/pipesync/internal/validation"
)

// Service управляет жизненным циклом локальных записей.
// Любая мутация работает только с локальным хранилищем и завершается
// мгновенно: сеть в этом пути не участвует.
type Service struct {
	store  storage.RecordStorage
	queue  *queue.Queue
	logger *slog.Logger
}

// NewService создает сервис записей
func NewService(store storage.RecordStorage, q *queue.Queue, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		queue:  q,
		logger: logger,
	}
}

// Create создает новую запись со статусом pending и ставит ее в очередь
func (s *Service) Create(ctx context.Context, kind models.RecordKind, payload json.RawMessage) (*models.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	if err := validation.ValidatePayload(payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	record := models.NewRecord(kind, payload, time.Now())

	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	s.queue.Enqueue(record.ID, time.Now())
	s.logger.Debug("record created", "record_id", record.ID, "kind", kind)

	return record, nil
}

// Update заменяет payload записи. Запись возвращается в pending и
// встает в очередь; быстрые последовательные правки дают одну загрузку.
func (s *Service) Update(ctx context.Context, id string, payload json.RawMessage) (*models.Record, error) {
	if err := validation.ValidatePayload(payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Payload = append(json.RawMessage(nil), payload...)
	record.SyncStatus = models.StatusPending
	record.LastError = ""
	record.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.queue.Enqueue(record.ID, time.Now())
	s.logger.Debug("record updated", "record_id", record.ID)

	return record, nil
}

// Delete выполняет мягкое удаление: запись остается в хранилище с
// флагом deleted и синхронизируется как обычная мутация
func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if record.Deleted {
		return nil
	}

	record.Deleted = true
	record.SyncStatus = models.StatusPending
	record.LastError = ""
	record.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to soft delete record: %w", err)
	}

	s.queue.Enqueue(record.ID, time.Now())
	s.logger.Debug("record soft deleted", "record_id", record.ID)

	return nil
}

// Get возвращает запись по id
func (s *Service) Get(ctx context.Context, id string) (*models.Record, error) {
	return s.store.Get(ctx, id)
}

// List возвращает записи по фильтру, скрывая мягко удаленные
func (s *Service) List(ctx context.Context, filter storage.QueryFilter) ([]*models.Record, error) {
	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := records[:0]
	for _, record := range records {
		if record.Deleted {
			continue
		}
		visible = append(visible, record)
	}

	return visible, nil
}

// MarkRecordSynced принудительно помечает запись синхронизированной.
// Ручной override для UI: сервер не участвует, текущий payload
// становится новым baseline.
func (s *Service) MarkRecordSynced(ctx context.Context, id string) error {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if record.SyncStatus == models.StatusSynced {
		return nil
	}

	// Нормализуем статус через pending: жизненный цикл не допускает
	// прямых переходов failed/conflict -> synced
	if record.SyncStatus != models.StatusPending {
		if err := s.store.MarkPending(ctx, id); err != nil {
			return err
		}
	}
	if err := s.store.MarkSyncing(ctx, id); err != nil {
		return err
	}

	fingerprint, err := record.Fingerprint()
	if err != nil {
		return fmt.Errorf("failed to fingerprint record: %w", err)
	}

	if err := s.store.MarkSynced(ctx, id, record.ServerID, record.ServerTimestamp, fingerprint); err != nil {
		return err
	}

	s.queue.Remove(id)
	s.logger.Info("record manually marked synced", "record_id", id)

	return nil
}

// MarkRecordFailed принудительно помечает запись ошибочной
func (s *Service) MarkRecordFailed(ctx context.Context, id, reason string) error {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if record.SyncStatus == models.StatusFailed {
		return nil
	}

	if record.SyncStatus != models.StatusPending {
		if err := s.store.MarkPending(ctx, id); err != nil {
			return err
		}
	}
	if err := s.store.MarkSyncing(ctx, id); err != nil {
		return err
	}
	if err := s.store.MarkFailed(ctx, id, reason); err != nil {
		return err
	}

	s.queue.Remove(id)
	s.logger.Info("record manually marked failed", "record_id", id, "reason", reason)

	return nil
}

// ForceResync возвращает failed или conflict запись в очередь.
// Для конфликта это решение «оставить локальную версию»: при следующей
// сессии локальный payload уйдет на сервер.
func (s *Service) ForceResync(ctx context.Context, id string) error {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	switch record.SyncStatus {
	case models.StatusFailed, models.StatusConflict:
		if err := s.store.MarkPending(ctx, id); err != nil {
			return err
		}
	case models.StatusPending:
		// Уже в очереди, сбрасываем только backoff
	default:
		return fmt.Errorf("record %s is %s, nothing to resync", id, record.SyncStatus)
	}

	s.queue.ForceRetry(id, time.Now())
	s.logger.Info("record queued for forced resync", "record_id", id)

	return nil
}
