package conflict

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecalc/pipesync/internal/models"
)

// syncedRecord возвращает запись, подтвержденную сервером с данным payload
func syncedRecord(t *testing.T, payload string) *models.Record {
	t.Helper()

	record := models.NewRecord(models.KindCalculationRecord, json.RawMessage(payload), time.Now())
	fingerprint, err := record.Fingerprint()
	require.NoError(t, err)

	record.SyncStatus = models.StatusSynced
	record.ServerID = "srv-1"
	record.ServerTimestamp = 100
	record.BaseFingerprint = fingerprint

	return record
}

func serverRecord(payload string) *models.Record {
	return &models.Record{
		ClientID:        "client-1",
		Kind:            models.KindCalculationRecord,
		Payload:         json.RawMessage(payload),
		ServerID:        "srv-1",
		ServerTimestamp: 200,
	}
}

func TestDetect_NoLocalCopy(t *testing.T) {
	decision, err := Detect(nil, serverRecord(`{"v": 1}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionAcceptServer, decision)
}

func TestDetect_NilServer(t *testing.T) {
	_, err := Detect(syncedRecord(t, `{}`), nil)
	assert.Error(t, err)
}

func TestDetect_NoChange(t *testing.T) {
	local := syncedRecord(t, `{"v": 1}`)

	decision, err := Detect(local, serverRecord(`{"v": 1}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionNoChange, decision)
}

func TestDetect_NoChange_KeyOrderIrrelevant(t *testing.T) {
	// Канонический отпечаток не зависит от порядка ключей в JSON
	local := syncedRecord(t, `{"a": 1, "b": 2}`)

	decision, err := Detect(local, serverRecord(`{"b": 2, "a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionNoChange, decision)
}

func TestDetect_ServerChangedOnly(t *testing.T) {
	// Локальная копия не трогалась после синхронизации,
	// на сервере появилась новая версия с другого устройства
	local := syncedRecord(t, `{"v": 1}`)

	decision, err := Detect(local, serverRecord(`{"v": 2}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionAcceptServer, decision)
}

func TestDetect_LocalChangedOnly(t *testing.T) {
	// Локальная правка ждет загрузки, сервер остался на baseline
	local := syncedRecord(t, `{"v": 1}`)
	base := local.BaseFingerprint

	local.Payload = json.RawMessage(`{"v": 5}`)
	local.SyncStatus = models.StatusPending

	server := serverRecord(`{"v": 1}`)
	require.Equal(t, base, local.BaseFingerprint)

	decision, err := Detect(local, server)
	require.NoError(t, err)
	assert.Equal(t, DecisionKeepLocal, decision)
}

func TestDetect_BothChanged(t *testing.T) {
	// Наивное двухстороннее сравнение здесь неразличимо с
	// ServerChangedOnly различает только baseline
	local := syncedRecord(t, `{"v": 1}`)
	local.Payload = json.RawMessage(`{"v": 5}`)
	local.SyncStatus = models.StatusPending

	decision, err := Detect(local, serverRecord(`{"v": 9}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionConflict, decision)
}

func TestDetect_NoBaseline(t *testing.T) {
	// Запись ни разу не синхронизировалась, но сервер знает ее client_id
	// (потерянный ack). Без baseline безопасного ответа нет, это конфликт.
	local := models.NewRecord(models.KindCalculationRecord, json.RawMessage(`{"v": 1}`), time.Now())

	decision, err := Detect(local, serverRecord(`{"v": 2}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionConflict, decision)
}

func TestDetect_ServerDeleted(t *testing.T) {
	// Сервер удалил запись, локальных правок нет
	local := syncedRecord(t, `{"v": 1}`)

	server := serverRecord(`{"v": 1}`)
	server.Deleted = true

	decision, err := Detect(local, server)
	require.NoError(t, err)
	assert.Equal(t, DecisionAcceptServer, decision)
}

func TestDetect_LocalDeletedServerChanged(t *testing.T) {
	// Локальное удаление против серверной правки дает конфликт
	local := syncedRecord(t, `{"v": 1}`)
	local.Deleted = true
	local.SyncStatus = models.StatusPending

	decision, err := Detect(local, serverRecord(`{"v": 2}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionConflict, decision)
}

func TestDetect_LocalDeletedServerUnchanged(t *testing.T) {
	// Локальное удаление ждет загрузки, сервер не менялся
	local := syncedRecord(t, `{"v": 1}`)
	local.Deleted = true
	local.SyncStatus = models.StatusPending

	decision, err := Detect(local, serverRecord(`{"v": 1}`))
	require.NoError(t, err)
	assert.Equal(t, DecisionKeepLocal, decision)
}

func TestDetect_Deterministic(t *testing.T) {
	local := syncedRecord(t, `{"v": 1}`)
	local.Payload = json.RawMessage(`{"v": 5}`)
	local.SyncStatus = models.StatusPending

	server := serverRecord(`{"v": 9}`)

	first, err := Detect(local, server)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		decision, err := Detect(local, server)
		require.NoError(t, err)
		assert.Equal(t, first, decision)
	}
}

func TestDetect_InvalidPayload(t *testing.T) {
	local := syncedRecord(t, `{"v": 1}`)
	local.Payload = json.RawMessage(`{broken`)

	_, err := Detect(local, serverRecord(`{"v": 1}`))
	assert.Error(t, err)
}
