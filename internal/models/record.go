package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecordKind тип синхронизируемой сущности
type RecordKind string

// Поддерживаемые виды записей. Движок синхронизации работает только
// с этими двумя сущностями мобильного приложения.
const (
	KindCalculationRecord RecordKind = "calculation_record" // результат расчета врезки/заглушки
	KindParameterSet      RecordKind = "parameter_set"      // сохраненный набор параметров трубопровода
)

// Valid возвращает true для известного вида записи
func (k RecordKind) Valid() bool {
	return k == KindCalculationRecord || k == KindParameterSet
}

// SyncStatus статус синхронизации локальной записи
type SyncStatus string

const (
	StatusPending  SyncStatus = "pending"  // создана/изменена локально, ждет загрузки
	StatusSyncing  SyncStatus = "syncing"  // попытка загрузки выполняется прямо сейчас
	StatusSynced   SyncStatus = "synced"   // подтверждена сервером
	StatusFailed   SyncStatus = "failed"   // исчерпаны попытки или фатальная ошибка
	StatusConflict SyncStatus = "conflict" // локальная и серверная копии разошлись
)

// Valid возвращает true для известного статуса
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusSynced, StatusFailed, StatusConflict:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода статуса согласно жизненному циклу:
// pending -> syncing -> synced | failed | conflict; failed и conflict могут
// вернуться в pending при ручном ре-синке.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case StatusPending:
		// Конфликт обнаруживается при скачивании дельты, пока локальная
		// правка еще ждет загрузки
		return next == StatusSyncing || next == StatusPending || next == StatusConflict
	case StatusSyncing:
		return next == StatusSynced || next == StatusFailed || next == StatusConflict || next == StatusPending
	case StatusSynced:
		// локальное изменение поверх синхронизированной записи
		return next == StatusPending || next == StatusConflict || next == StatusSynced
	case StatusFailed, StatusConflict:
		return next == StatusPending
	}
	return false
}

// Record представляет локальную запись, которой владеет Local Store.
// Payload непрозрачен для движка синхронизации: он сравнивается только
// по каноническому отпечатку (см. Fingerprint).
type Record struct {
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`               // локальный идентификатор (UUID), неизменен после создания
	ClientID        string          `json:"client_id"`        // идентификатор для сопоставления с сервером, назначается один раз
	Kind            RecordKind      `json:"kind"`             // вид сущности
	SyncStatus      SyncStatus      `json:"sync_status"`      // текущий статус синхронизации
	ServerID        string          `json:"server_id"`        // пусто до первого подтверждения сервером
	BaseFingerprint string          `json:"base_fingerprint"` // отпечаток payload на момент последней успешной синхронизации
	LastError       string          `json:"last_error"`       // последняя ошибка синхронизации, для UI
	Payload         json.RawMessage `json:"payload"`          // opaque данные расчета
	ServerTimestamp int64           `json:"server_timestamp"` // unix millis, 0 до первой синхронизации
	Deleted         bool            `json:"deleted"`          // soft delete, синхронизируется как обычная мутация
}

// NewRecord создает новую локальную запись со статусом pending.
// ID и ClientID назначаются один раз и больше не меняются.
func NewRecord(kind RecordKind, payload json.RawMessage, now time.Time) *Record {
	return &Record{
		ID:         uuid.New().String(),
		ClientID:   uuid.New().String(),
		Kind:       kind,
		Payload:    append(json.RawMessage(nil), payload...),
		SyncStatus: StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Fingerprint возвращает детерминированный отпечаток payload записи
func (r *Record) Fingerprint() (string, error) {
	return Fingerprint(r.Payload)
}

// Synced возвращает true, если запись хотя бы раз подтверждалась сервером
func (r *Record) Synced() bool {
	return r.ServerID != ""
}

// Clone создает глубокую копию записи
func (r *Record) Clone() *Record {
	payload := make(json.RawMessage, len(r.Payload))
	copy(payload, r.Payload)

	clone := *r
	clone.Payload = payload
	return &clone
}

// QueueItem представляет элемент очереди синхронизации. Очередь хранит
// только ссылку на запись по ID: второй копии payload не существует,
// чтобы store и очередь не могли разойтись.
type QueueItem struct {
	EnqueuedAt     time.Time `json:"enqueued_at"`
	NextEligibleAt time.Time `json:"next_eligible_at"` // момент следующей допустимой попытки (backoff)
	RecordID       string    `json:"record_id"`
	LastError      string    `json:"last_error"`
	AttemptCount   int       `json:"attempt_count"`
	Retired        bool      `json:"retired"` // превышен maxAttempts, ждет ручного force sync
}

// SyncSession агрегирует результат одного прогона синхронизации.
// Эфемерна: хранится только последняя сессия для отображения в UI.
type SyncSession struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	UploadedCount   int       `json:"uploaded_count"`
	DownloadedCount int       `json:"downloaded_count"`
	ConflictCount   int       `json:"conflict_count"`
	FailedCount     int       `json:"failed_count"`
	Success         bool      `json:"success"`
	Cancelled       bool      `json:"cancelled"`
}
