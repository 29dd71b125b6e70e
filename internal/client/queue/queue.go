// Package queue реализует очередь отложенных мутаций для синхронизации.
// Очередь живет только в памяти: при старте она восстанавливается из
// Local Store по статусам записей, поэтому второй персистентной копии
// состояния не существует и расходиться нечему.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
)

// Config параметры повторных попыток
type Config struct {
	// BaseDelay базовая задержка экспоненциального backoff
	BaseDelay time.Duration
	// MaxDelay потолок задержки между попытками
	MaxDelay time.Duration
	// MaxAttempts число попыток до перевода записи в retired
	MaxAttempts int
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Minute,
		MaxAttempts: 8,
	}
}

// Stats моментальный снимок состояния очереди для UI
type Stats struct {
	Total    int // всего элементов, включая retired
	Eligible int // готовы к попытке прямо сейчас
	Waiting  int // ждут истечения backoff
	Retired  int // исчерпали попытки, ждут ручного force sync
}

// Queue потокобезопасная очередь записей, ожидающих загрузки на сервер.
// Хранит только ID записей: payload остается в Local Store.
type Queue struct {
	items  map[string]*models.QueueItem
	logger *slog.Logger
	order  []string // FIFO порядок постановки
	cfg    Config
	mu     sync.Mutex
}

// New создает пустую очередь
func New(cfg Config, logger *slog.Logger) *Queue {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig().MaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}

	return &Queue{
		cfg:    cfg,
		logger: logger,
		items:  make(map[string]*models.QueueItem),
	}
}

// Enqueue ставит запись в очередь. Повторная постановка той же записи
// не создает дубликата: быстрые последовательные правки одной записи
// дают одну загрузку с последним содержимым.
func (q *Queue) Enqueue(recordID string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.items[recordID]; exists {
		return false
	}

	q.items[recordID] = &models.QueueItem{
		RecordID:       recordID,
		EnqueuedAt:     now,
		NextEligibleAt: now,
	}
	q.order = append(q.order, recordID)

	return true
}

// Rebuild восстанавливает очередь из Local Store после рестарта.
// Записи pending ставятся в очередь, застрявшие в syncing после падения
// процесса возвращаются в pending, failed попадают в retired и ждут
// ручного ре-синка.
func (q *Queue) Rebuild(ctx context.Context, store storage.RecordStorage, now time.Time) error {
	// Застрявшие syncing: процесс упал посреди загрузки
	stuck, err := store.Query(ctx, storage.QueryFilter{Status: models.StatusSyncing})
	if err != nil {
		return fmt.Errorf("failed to query stuck records: %w", err)
	}
	for _, record := range stuck {
		if err := store.MarkPending(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to reset stuck record %s: %w", record.ID, err)
		}
		q.logger.Warn("reset record stuck in syncing", "record_id", record.ID)
	}

	pending, err := store.Query(ctx, storage.QueryFilter{Status: models.StatusPending})
	if err != nil {
		return fmt.Errorf("failed to query pending records: %w", err)
	}
	for _, record := range pending {
		q.Enqueue(record.ID, now)
	}

	failed, err := store.Query(ctx, storage.QueryFilter{Status: models.StatusFailed})
	if err != nil {
		return fmt.Errorf("failed to query failed records: %w", err)
	}

	q.mu.Lock()
	for _, record := range failed {
		if _, exists := q.items[record.ID]; exists {
			continue
		}
		q.items[record.ID] = &models.QueueItem{
			RecordID:       record.ID,
			EnqueuedAt:     now,
			NextEligibleAt: now,
			AttemptCount:   q.cfg.MaxAttempts,
			LastError:      record.LastError,
			Retired:        true,
		}
		q.order = append(q.order, record.ID)
	}
	q.mu.Unlock()

	q.logger.Info("sync queue rebuilt",
		"pending", len(pending), "failed", len(failed), "stuck", len(stuck))

	return nil
}

// Dequeue извлекает первую запись, готовую к попытке в момент now.
// Элемент убирается из очереди на время полета; при retriable-ошибке
// его возвращает Requeue.
func (q *Queue) Dequeue(now time.Time) (*models.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, recordID := range q.order {
		item, exists := q.items[recordID]
		if !exists {
			continue
		}
		if item.Retired || item.NextEligibleAt.After(now) {
			continue
		}

		delete(q.items, recordID)
		q.order = append(q.order[:i], q.order[i+1:]...)

		copied := *item
		return &copied, true
	}

	return nil, false
}

// Requeue возвращает запись в очередь после retriable-ошибки.
// Задержка растет экспоненциально: min(2^n * base, max). После
// исчерпания попыток запись становится retired, Requeue возвращает
// false и вызывающий помечает запись failed в Local Store.
func (q *Queue) Requeue(item *models.QueueItem, errMsg string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.AttemptCount++
	item.LastError = errMsg

	requeued := *item

	if requeued.AttemptCount >= q.cfg.MaxAttempts {
		requeued.Retired = true
	} else {
		requeued.NextEligibleAt = now.Add(q.backoff(requeued.AttemptCount))
	}

	if _, exists := q.items[requeued.RecordID]; !exists {
		q.order = append(q.order, requeued.RecordID)
	}
	q.items[requeued.RecordID] = &requeued

	return !requeued.Retired
}

// Restore возвращает извлеченный элемент в очередь как есть, без
// увеличения счетчика попыток. Нужен, когда попытка не состоялась:
// отмена сессии или остановка загрузки до запроса.
func (q *Queue) Restore(item *models.QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.items[item.RecordID]; exists {
		return
	}

	copied := *item
	q.items[copied.RecordID] = &copied
	q.order = append(q.order, copied.RecordID)
}

// Remove убирает запись из очереди (успех либо фатальная ошибка)
func (q *Queue) Remove(recordID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.items[recordID]; !exists {
		return
	}

	delete(q.items, recordID)
	for i, id := range q.order {
		if id == recordID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// ForceRetry сбрасывает счетчик попыток и backoff для ручного ре-синка.
// Если записи нет в очереди, она ставится заново.
func (q *Queue) ForceRetry(recordID string, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, exists := q.items[recordID]
	if !exists {
		q.items[recordID] = &models.QueueItem{
			RecordID:       recordID,
			EnqueuedAt:     now,
			NextEligibleAt: now,
		}
		q.order = append(q.order, recordID)
		return
	}

	item.AttemptCount = 0
	item.Retired = false
	item.LastError = ""
	item.NextEligibleAt = now
}

// Len возвращает число элементов в очереди, включая retired
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats возвращает снимок состояния очереди
func (q *Queue) Stats(now time.Time) Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{Total: len(q.items)}
	for _, item := range q.items {
		switch {
		case item.Retired:
			stats.Retired++
		case item.NextEligibleAt.After(now):
			stats.Waiting++
		default:
			stats.Eligible++
		}
	}

	return stats
}

// backoff вычисляет задержку перед попыткой с номером attempt (с единицы)
func (q *Queue) backoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	// Защита от переполнения при сдвиге
	if shift > 30 {
		return q.cfg.MaxDelay
	}

	delay := q.cfg.BaseDelay << shift
	if delay > q.cfg.MaxDelay || delay <= 0 {
		return q.cfg.MaxDelay
	}

	return delay
}
