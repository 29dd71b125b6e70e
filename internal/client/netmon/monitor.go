// Package netmon отслеживает доступность сервера синхронизации.
// Мобильный клиент не может доверять флагу «есть сеть» операционной
// системы: Wi-Fi без интернета и нестабильный сотовый канал выглядят
// подключенными. Поэтому монитор опирается на реальные reachability
// запросы и исходы настоящего sync-трафика.
package netmon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status состояние соединения с точки зрения клиента
type Status string

const (
	StatusConnecting   Status = "connecting"   // первый check еще не завершился
	StatusConnected    Status = "connected"    // последние запросы проходят
	StatusUnstable     Status = "unstable"     // часть запросов падает, синхронизацию лучше приостановить
	StatusDisconnected Status = "disconnected" // сервер недоступен
)

// NetworkType тип подключения, если платформа его сообщает
type NetworkType string

const (
	NetworkUnknown  NetworkType = "unknown"
	NetworkWiFi     NetworkType = "wifi"
	NetworkCellular NetworkType = "cellular"
	NetworkEthernet NetworkType = "ethernet"
	NetworkVPN      NetworkType = "vpn"
	NetworkNone     NetworkType = "none"
)

// Checker выполняет один reachability-запрос к серверу
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc адаптер функции к интерфейсу Checker
type CheckerFunc func(ctx context.Context) error

// Check calls f(ctx)
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Config параметры монитора
type Config struct {
	// Interval период фоновых reachability-запросов
	Interval time.Duration
	// FailureThreshold число подряд неудачных запросов до disconnected.
	// Первая же неудача из connected переводит в unstable.
	FailureThreshold int
	// CheckTimeout таймаут одного reachability-запроса
	CheckTimeout time.Duration
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		Interval:         30 * time.Second,
		FailureThreshold: 3,
		CheckTimeout:     5 * time.Second,
	}
}

// Monitor следит за состоянием сети. Потокобезопасен.
type Monitor struct {
	checker  Checker
	logger   *slog.Logger
	stopCh   chan struct{}
	subs     []chan Status
	cfg      Config
	mu       sync.RWMutex
	wg       sync.WaitGroup
	status   Status
	netType  NetworkType
	failures int
	started  bool
}

// New создает монитор сети
func New(checker Checker, logger *slog.Logger, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultConfig().CheckTimeout
	}

	return &Monitor{
		checker: checker,
		logger:  logger,
		cfg:     cfg,
		status:  StatusConnecting,
		netType: NetworkUnknown,
		stopCh:  make(chan struct{}),
	}
}

// Start запускает фоновый цикл reachability-запросов.
// Первый check выполняется синхронно: после возврата Start статус
// отражает реальную доступность сервера, а не стартовый connecting.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.check(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Stop останавливает фоновый цикл
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
}

// Status возвращает текущее состояние соединения
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// NetworkType возвращает известный тип подключения
func (m *Monitor) NetworkType() NetworkType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.netType
}

// SetNetworkType сообщает монитору тип подключения с платформы.
// NetworkNone сразу переводит в disconnected без ожидания неудачных запросов.
func (m *Monitor) SetNetworkType(netType NetworkType) {
	m.mu.Lock()
	m.netType = netType

	var notify []chan Status
	var status Status
	if netType == NetworkNone && m.status != StatusDisconnected {
		m.status = StatusDisconnected
		m.failures = m.cfg.FailureThreshold
		status = m.status
		notify = append(notify, m.subs...)
	}
	m.mu.Unlock()

	m.publish(notify, status)
}

// Subscribe возвращает канал уведомлений о смене статуса.
// Канал с буфером 1: при отставании подписчика старое значение
// вытесняется новым, доставляется всегда последнее состояние.
func (m *Monitor) Subscribe() <-chan Status {
	ch := make(chan Status, 1)

	m.mu.Lock()
	m.subs = append(m.subs, ch)
	ch <- m.status
	m.mu.Unlock()

	return ch
}

// ReportSuccess сообщает об успешном реальном запросе к серверу.
// Оркестратор синхронизации кормит монитор исходами sync-трафика,
// чтобы статус отражал реальность, а не только фоновые пробы.
func (m *Monitor) ReportSuccess() {
	m.observe(nil)
}

// ReportFailure сообщает о неудачном реальном запросе
func (m *Monitor) ReportFailure() {
	m.observe(errFailedRequest)
}

var errFailedRequest = &reportedError{}

type reportedError struct{}

func (e *reportedError) Error() string { return "reported request failure" }

// check выполняет один reachability-запрос
func (m *Monitor) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()

	m.observe(m.checker.Check(checkCtx))
}

// observe обновляет состояние по исходу запроса
func (m *Monitor) observe(err error) {
	m.mu.Lock()

	prev := m.status

	if err == nil {
		m.failures = 0
		m.status = StatusConnected
	} else {
		m.failures++
		switch {
		case m.failures >= m.cfg.FailureThreshold:
			m.status = StatusDisconnected
		case prev == StatusConnected || prev == StatusUnstable:
			m.status = StatusUnstable
		case prev == StatusConnecting:
			// До первого успеха не объявляем сеть нестабильной
			m.status = StatusConnecting
		}
	}

	changed := m.status != prev
	status := m.status

	var notify []chan Status
	if changed {
		notify = append(notify, m.subs...)
	}
	m.mu.Unlock()

	if changed {
		m.logger.Info("network status changed", "from", prev, "to", status)
		m.publish(notify, status)
	}
}

// publish доставляет статус подписчикам без блокировки (drop-and-replace)
func (m *Monitor) publish(subs []chan Status, status Status) {
	for _, ch := range subs {
		select {
		case ch <- status:
		default:
			// Вытесняем устаревшее значение
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- status:
			default:
			}
		}
	}
}
