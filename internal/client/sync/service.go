// Package sync содержит оркестратор синхронизации: координирует
// очередь, локальное хранилище, монитор сети и обнаружение конфликтов.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	httpClient "github.com/pipecalc/pipesync/internal/client/api"
	"github.com/pipecalc/pipesync/internal/client/conflict"
	"github.com/pipecalc/pipesync/internal/client/netmon"
	"github.com/pipecalc/pipesync/internal/client/queue"
	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
	"github.com/pipecalc/pipesync/pkg/api"
)

var (
	// ErrSyncInProgress в каждый момент выполняется не более одной сессии
	ErrSyncInProgress = errors.New("sync is already in progress")

	// ErrOffline сеть недоступна, сессия не запускалась
	ErrOffline = errors.New("network unavailable, sync skipped")

	// ErrSuspended сессия приостановлена из-за деградации сети,
	// необработанные записи остались в очереди
	ErrSuspended = errors.New("sync suspended, network degraded")
)

// UploadWorkers число параллельных загрузок. Ограничено, чтобы не
// душить мобильный канал и сервер.
const UploadWorkers = 4

// Горизонт, за которым любой backoff считается истекшим
const ignoreBackoffHorizon = 100 * 365 * 24 * time.Hour

// Phase фаза выполняющейся сессии
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseUploading   Phase = "uploading"
	PhaseDownloading Phase = "downloading"
)

// Status снимок прогресса для UI
type Status struct {
	Phase      Phase `json:"phase"`
	Uploaded   int   `json:"uploaded"`
	Downloaded int   `json:"downloaded"`
	Conflicts  int   `json:"conflicts"`
	Failed     int   `json:"failed"`
	Pending    int   `json:"pending"` // осталось в очереди
}

// Network consumer-side интерфейс монитора сети
type Network interface {
	Status() netmon.Status
	ReportSuccess()
	ReportFailure()
}

// TokenProvider выдает access token для запросов к серверу
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Service оркестратор синхронизации
type Service struct {
	apiClient httpClient.ClientAPI
	records   storage.RecordStorage
	metadata  storage.MetadataStorage
	queue     *queue.Queue
	network   Network
	tokens    TokenProvider
	logger    *slog.Logger
	status    *broadcaster

	cancelRun context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// NewService создает оркестратор синхронизации
func NewService(
	apiClient httpClient.ClientAPI,
	records storage.RecordStorage,
	metadata storage.MetadataStorage,
	q *queue.Queue,
	network Network,
	tokens TokenProvider,
	logger *slog.Logger,
) *Service {
	return &Service{
		apiClient: apiClient,
		records:   records,
		metadata:  metadata,
		queue:     q,
		network:   network,
		tokens:    tokens,
		logger:    logger,
		status:    newBroadcaster(),
	}
}

// sessionCounters атомарные счетчики текущей сессии
type sessionCounters struct {
	uploaded   atomic.Int64
	downloaded atomic.Int64
	conflicts  atomic.Int64
	failed     atomic.Int64
}

// runOptions параметры одной сессии
type runOptions struct {
	download      bool // скачивать дельту после фазы загрузки
	ignoreBackoff bool // считать все backoff истекшими
}

// IncrementalSync выполняет быструю сессию "sync now": загружает готовые
// к попытке записи из очереди, дельту не скачивает
func (s *Service) IncrementalSync(ctx context.Context) (*models.SyncSession, error) {
	return s.run(ctx, runOptions{})
}

// FullSync выполняет полную сессию: загрузка ожидающих записей плюс
// скачивание дельты после watermark со сверкой конфликтов
func (s *Service) FullSync(ctx context.Context) (*models.SyncSession, error) {
	return s.run(ctx, runOptions{download: true})
}

// ForceProcessQueue немедленно проталкивает очередь, игнорируя backoff.
// Retired записи не трогает: им нужен ручной ре-синк.
func (s *Service) ForceProcessQueue(ctx context.Context) (*models.SyncSession, error) {
	return s.run(ctx, runOptions{ignoreBackoff: true})
}

// Cancel прерывает выполняющуюся сессию. Уже подтвержденные сервером
// записи остаются synced, остальные вернутся в очередь.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
}

// InProgress возвращает true, пока сессия выполняется
func (s *Service) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status возвращает текущий снимок прогресса
func (s *Service) Status() Status {
	return s.status.snapshot()
}

// Subscribe возвращает канал снимков прогресса (буфер 1, вытеснение)
func (s *Service) Subscribe() <-chan Status {
	return s.status.subscribe()
}

// LastSession возвращает результат последней завершенной сессии
func (s *Service) LastSession(ctx context.Context) (*models.SyncSession, error) {
	return s.metadata.GetLastSession(ctx)
}

// Statistics агрегированная сводка синхронизации для UI
type Statistics struct {
	LastSyncAt   time.Time `json:"last_sync_at"` // нулевое время, если синхронизаций не было
	SuccessRate  float64   `json:"success_rate"` // доля успешных загрузок последней сессии
	Uploaded     int       `json:"uploaded"`
	Downloaded   int       `json:"downloaded"`
	Conflicts    int       `json:"conflicts"`
	Failed       int       `json:"failed"`
	QueueReady   int       `json:"queue_ready"`
	QueueWaiting int       `json:"queue_waiting"`
	QueueRetired int       `json:"queue_retired"`
	LastSuccess  bool      `json:"last_success"`
}

// Statistics возвращает сводку по последней сессии и текущей очереди
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	queueStats := s.queue.Stats(time.Now())
	stats := Statistics{
		QueueReady:   queueStats.Eligible,
		QueueWaiting: queueStats.Waiting,
		QueueRetired: queueStats.Retired,
	}

	session, err := s.metadata.GetLastSession(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to load last session: %w", err)
	}
	if session == nil {
		return stats, nil
	}

	stats.LastSyncAt = session.FinishedAt
	stats.LastSuccess = session.Success
	stats.Uploaded = session.UploadedCount
	stats.Downloaded = session.DownloadedCount
	stats.Conflicts = session.ConflictCount
	stats.Failed = session.FailedCount

	if attempts := session.UploadedCount + session.FailedCount; attempts > 0 {
		stats.SuccessRate = float64(session.UploadedCount) / float64(attempts)
	}

	return stats, nil
}

func (s *Service) run(ctx context.Context, opts runOptions) (*models.SyncSession, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancelRun = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancelRun = nil
		s.mu.Unlock()
	}()

	// Дрейн стартует только из connected: connecting и unstable не
	// годятся, а деградацию посреди сессии ловит проверка перед каждой
	// записью в uploadPhase
	switch s.network.Status() {
	case netmon.StatusConnected:
	case netmon.StatusUnstable:
		return nil, fmt.Errorf("%w: refusing to start on unstable network", ErrSuspended)
	default:
		return nil, ErrOffline
	}

	token, err := s.tokens.AccessToken(runCtx)
	if err != nil {
		return nil, fmt.Errorf("cannot sync without valid token: %w", err)
	}

	s.logger.Info("sync session started", "download", opts.download, "queued", s.queue.Len())

	session := &models.SyncSession{StartedAt: time.Now()}
	counters := &sessionCounters{}

	uploadErr := s.uploadPhase(runCtx, token, opts.ignoreBackoff, counters)

	var downloadErr error
	if opts.download && uploadErr == nil {
		downloadErr = s.downloadPhase(runCtx, token, counters)
	}

	session.FinishedAt = time.Now()
	session.UploadedCount = int(counters.uploaded.Load())
	session.DownloadedCount = int(counters.downloaded.Load())
	session.ConflictCount = int(counters.conflicts.Load())
	session.FailedCount = int(counters.failed.Load())
	session.Cancelled = errors.Is(uploadErr, context.Canceled) ||
		errors.Is(downloadErr, context.Canceled)
	session.Success = uploadErr == nil && downloadErr == nil

	// Сессия могла быть отменена, результат сохраняем все равно
	saveCtx := context.WithoutCancel(ctx)
	if err := s.metadata.SaveLastSession(saveCtx, session); err != nil {
		s.logger.Warn("failed to save sync session", "error", err)
	}

	s.publishProgress(PhaseIdle, counters)

	s.logger.Info("sync session finished",
		"uploaded", session.UploadedCount,
		"downloaded", session.DownloadedCount,
		"conflicts", session.ConflictCount,
		"failed", session.FailedCount,
		"success", session.Success,
		"cancelled", session.Cancelled)

	if uploadErr != nil {
		return session, uploadErr
	}
	if downloadErr != nil {
		return session, downloadErr
	}
	return session, nil
}

// uploadPhase проталкивает очередь через пул воркеров. Возвращает
// ошибку только при прерывании фазы целиком; неудачи отдельных записей
// изолированы и попадают в счетчики.
func (s *Service) uploadPhase(ctx context.Context, token string, ignoreBackoff bool, c *sessionCounters) error {
	now := time.Now()
	eligible := now
	if ignoreBackoff {
		eligible = now.Add(ignoreBackoffHorizon)
	}

	s.publishProgress(PhaseUploading, c)

	items := make(chan *models.QueueItem)
	var wg sync.WaitGroup

	for i := 0; i < UploadWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				s.uploadOne(ctx, token, item, c)
				s.publishProgress(PhaseUploading, c)
			}
		}()
	}

	var phaseErr error
	for {
		if err := ctx.Err(); err != nil {
			phaseErr = err
			break
		}

		// Сеть проверяется перед каждой записью: при деградации фаза
		// приостанавливается, остаток очереди ждет следующей сессии
		if st := s.network.Status(); st == netmon.StatusDisconnected || st == netmon.StatusUnstable {
			phaseErr = fmt.Errorf("%w: network is %s", ErrSuspended, st)
			break
		}

		item, ok := s.queue.Dequeue(eligible)
		if !ok {
			break
		}

		select {
		case items <- item:
		case <-ctx.Done():
			s.queue.Restore(item)
			phaseErr = ctx.Err()
		}
		if phaseErr != nil {
			break
		}
	}

	close(items)
	wg.Wait()

	return phaseErr
}

// uploadOne выполняет одну попытку загрузки записи
func (s *Service) uploadOne(ctx context.Context, token string, item *models.QueueItem, c *sessionCounters) {
	record, err := s.records.Get(ctx, item.RecordID)
	if errors.Is(err, storage.ErrRecordNotFound) {
		// Запись удалена насовсем, загружать нечего
		return
	}
	if err != nil {
		s.logger.Error("failed to load queued record", "record_id", item.RecordID, "error", err)
		s.queue.Restore(item)
		return
	}

	if record.SyncStatus == models.StatusConflict {
		// Конфликт ждет решения пользователя, не загружаем
		return
	}

	if err := s.records.MarkSyncing(ctx, record.ID); err != nil {
		s.logger.Warn("failed to mark record syncing", "record_id", record.ID, "error", err)
		s.queue.Restore(item)
		return
	}

	resp, err := s.apiClient.UploadRecord(ctx, token, api.UploadRecordRequest{
		ClientID:  record.ClientID,
		Kind:      string(record.Kind),
		Payload:   record.Payload,
		CreatedAt: record.CreatedAt.UnixMilli(),
		UpdatedAt: record.UpdatedAt.UnixMilli(),
		Deleted:   record.Deleted,
	})
	if err != nil {
		s.handleUploadError(ctx, record, item, err, c)
		return
	}

	s.network.ReportSuccess()

	fingerprint, err := record.Fingerprint()
	if err != nil {
		s.logger.Error("failed to fingerprint uploaded record", "record_id", record.ID, "error", err)
		_ = s.records.MarkFailed(ctx, record.ID, err.Error())
		c.failed.Add(1)
		return
	}

	if err := s.records.MarkSynced(ctx, record.ID, resp.ServerID, resp.ServerTimestamp, fingerprint); err != nil {
		s.logger.Error("failed to mark record synced", "record_id", record.ID, "error", err)
		return
	}

	c.uploaded.Add(1)
	s.logger.Debug("record uploaded", "record_id", record.ID, "server_id", resp.ServerID)
}

// handleUploadError разводит retriable и фатальные ошибки загрузки
func (s *Service) handleUploadError(ctx context.Context, record *models.Record, item *models.QueueItem, uploadErr error, c *sessionCounters) {
	if errors.Is(uploadErr, context.Canceled) {
		// Отмена сессии: запись возвращается как была. Контекст уже
		// отменен, откат статуса выполняем вне его.
		_ = s.records.MarkPending(context.WithoutCancel(ctx), record.ID)
		s.queue.Restore(item)
		return
	}

	networkClass := errors.Is(uploadErr, httpClient.ErrNetworkUnavailable) ||
		errors.Is(uploadErr, httpClient.ErrTimeout)
	if networkClass {
		s.network.ReportFailure()
	} else {
		// Сервер ответил, пусть и ошибкой: сеть работает
		s.network.ReportSuccess()
	}

	if httpClient.Retriable(uploadErr) {
		if s.queue.Requeue(item, uploadErr.Error(), time.Now()) {
			_ = s.records.MarkPending(ctx, record.ID)
			s.logger.Warn("upload failed, requeued with backoff",
				"record_id", record.ID, "attempt", item.AttemptCount, "error", uploadErr)
			return
		}
		// Попытки исчерпаны
		_ = s.records.MarkFailed(ctx, record.ID, uploadErr.Error())
		c.failed.Add(1)
		s.logger.Error("upload failed, attempts exhausted", "record_id", record.ID, "error", uploadErr)
		return
	}

	// Фатальная ошибка: auth или валидация, повторы не помогут
	_ = s.records.MarkFailed(ctx, record.ID, uploadErr.Error())
	c.failed.Add(1)
	s.logger.Error("upload failed permanently", "record_id", record.ID, "error", uploadErr)
}

// downloadPhase скачивает дельту и применяет ее последовательно.
// Параллелить нечего: порядок применения важен, а узкое место это сеть.
func (s *Service) downloadPhase(ctx context.Context, token string, c *sessionCounters) error {
	s.publishProgress(PhaseDownloading, c)

	// Перед перезаписью локальных данных хранилище обязано пройти
	// проверку целостности
	if err := s.records.IntegrityCheck(ctx); err != nil {
		return fmt.Errorf("local store failed integrity check, refusing to apply server data: %w", err)
	}

	since, err := s.metadata.GetWatermark(ctx)
	if err != nil {
		// Метаданные потеряны: watermark восстанавливается как максимум
		// server_timestamp среди локальных записей
		s.logger.Warn("failed to load watermark, recovering from local records", "error", err)
		since, err = s.records.MaxServerTimestamp(ctx)
		if err != nil {
			s.logger.Warn("failed to recover watermark, downloading from scratch", "error", err)
			since = 0
		}
	}

	resp, err := s.apiClient.FetchRecordsSince(ctx, token, since)
	if err != nil {
		if errors.Is(err, httpClient.ErrNetworkUnavailable) || errors.Is(err, httpClient.ErrTimeout) {
			s.network.ReportFailure()
		}
		return fmt.Errorf("delta download failed: %w", err)
	}
	s.network.ReportSuccess()

	s.logger.Info("delta received", "records", len(resp.Records), "since", since)

	applyFailures := 0
	for _, serverRecord := range resp.Records {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.applyOne(ctx, serverRecord, c); err != nil {
			s.logger.Warn("failed to apply server record",
				"client_id", serverRecord.ClientID, "error", err)
			applyFailures++
		}
		s.publishProgress(PhaseDownloading, c)
	}

	// Watermark сдвигается только если вся дельта применена: иначе
	// непримененные записи выпали бы из следующего скачивания
	if applyFailures == 0 {
		if err := s.metadata.SaveWatermark(ctx, resp.ServerTimestamp); err != nil {
			s.logger.Warn("failed to save watermark", "error", err)
		}
	}

	return nil
}

// applyOne применяет одну серверную запись по решению детектора конфликтов
func (s *Service) applyOne(ctx context.Context, serverRecord api.ServerRecord, c *sessionCounters) error {
	server := serverToModel(serverRecord)

	local, err := s.records.GetByClientID(ctx, serverRecord.ClientID)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return err
	}

	decision, err := conflict.Detect(local, server)
	if err != nil {
		return err
	}

	switch decision {
	case conflict.DecisionAcceptServer:
		if err := s.records.ApplyServerRecord(ctx, server); err != nil {
			return err
		}
		c.downloaded.Add(1)

	case conflict.DecisionNoChange:
		// Содержимое уже совпадает: обновляем baseline и server
		// timestamp, а осиротевшую загрузку той же версии снимаем
		if err := s.records.ApplyServerRecord(ctx, server); err != nil {
			return err
		}
		if local != nil {
			s.queue.Remove(local.ID)
		}

	case conflict.DecisionKeepLocal:
		// Локальная правка новее, следующая загрузка доставит ее

	case conflict.DecisionConflict:
		if local != nil {
			if err := s.records.MarkConflict(ctx, local.ID); err != nil {
				return err
			}
			// Из очереди конфликтная запись убирается: загрузка
			// возобновится после решения пользователя
			s.queue.Remove(local.ID)
		}
		c.conflicts.Add(1)
		s.logger.Warn("conflict detected", "client_id", serverRecord.ClientID)
	}

	return nil
}

func (s *Service) publishProgress(phase Phase, c *sessionCounters) {
	s.status.publish(Status{
		Phase:      phase,
		Uploaded:   int(c.uploaded.Load()),
		Downloaded: int(c.downloaded.Load()),
		Conflicts:  int(c.conflicts.Load()),
		Failed:     int(c.failed.Load()),
		Pending:    s.queue.Len(),
	})
}

// serverToModel конвертирует серверную запись в локальную модель
func serverToModel(sr api.ServerRecord) *models.Record {
	return &models.Record{
		ID:              uuid.New().String(), // используется только при вставке новой записи
		ClientID:        sr.ClientID,
		Kind:            models.RecordKind(sr.Kind),
		Payload:         sr.Payload,
		SyncStatus:      models.StatusSynced,
		ServerID:        sr.ServerID,
		ServerTimestamp: sr.ServerTimestamp,
		Deleted:         sr.Deleted,
		CreatedAt:       time.UnixMilli(sr.CreatedAt),
		UpdatedAt:       time.UnixMilli(sr.UpdatedAt),
	}
}
