// Package conflict реализует трехстороннее обнаружение конфликтов.
// Сравниваются не две копии (локальная и серверная), а три точки:
// обе копии против baseline, отпечатка payload на момент последней
// успешной синхронизации. Только так различимы «сервер обновился, а я
// нет» (безопасно принять сервер) и «изменились оба» (настоящий
// конфликт). Автослияние намеренно отсутствует: расчетные данные
// мержить нельзя, решает пользователь.
package conflict

import (
	"fmt"

	"github.com/pipecalc/pipesync/internal/models"
)

// Decision результат сравнения локальной и серверной копий
type Decision string

const (
	// DecisionNoChange копии идентичны, достаточно обновить baseline
	DecisionNoChange Decision = "no_change"
	// DecisionAcceptServer локальная копия не менялась с последней
	// синхронизации, серверную можно принять без потери данных
	DecisionAcceptServer Decision = "accept_server"
	// DecisionKeepLocal сервер не менялся, локальные правки ждут загрузки
	DecisionKeepLocal Decision = "keep_local"
	// DecisionConflict изменились обе копии, нужно решение пользователя
	DecisionConflict Decision = "conflict"
)

// Detect сравнивает локальную запись с серверной копией той же записи.
// Функция чистая и детерминированная: одинаковые входы всегда дают
// одинаковое решение.
func Detect(local, server *models.Record) (Decision, error) {
	if server == nil {
		return "", fmt.Errorf("server record is nil")
	}
	if local == nil {
		// Локальной копии нет, запись пришла с другого устройства
		return DecisionAcceptServer, nil
	}

	localFP, err := local.Fingerprint()
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint local record: %w", err)
	}

	serverFP, err := server.Fingerprint()
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint server record: %w", err)
	}

	// Содержимое совпадает (включая флаг удаления): расхождения нет,
	// каким бы ни был baseline
	if localFP == serverFP && local.Deleted == server.Deleted {
		return DecisionNoChange, nil
	}

	// Запись ни разу не синхронизировалась, а сервер уже знает ее
	// client_id: baseline отсутствует, доказать отсутствие локальных
	// правок нечем. Консервативно объявляем конфликт.
	if local.BaseFingerprint == "" {
		return DecisionConflict, nil
	}

	// Незагруженная локальная мутация видна по статусу: pending, syncing
	// и failed означают правку (включая soft delete), не дошедшую до
	// сервера. Отпечаток сам по себе этого не покрывает, когда payload
	// не менялся, а изменился только флаг удаления.
	localChanged := localFP != local.BaseFingerprint || local.SyncStatus != models.StatusSynced
	serverChanged := serverFP != local.BaseFingerprint || (server.Deleted && !local.Deleted)

	switch {
	case localChanged && serverChanged:
		return DecisionConflict, nil
	case serverChanged:
		return DecisionAcceptServer, nil
	default:
		return DecisionKeepLocal, nil
	}
}
