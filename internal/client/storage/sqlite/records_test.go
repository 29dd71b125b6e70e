package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func testRecord(kind models.RecordKind, payload string) *models.Record {
	return models.NewRecord(kind, json.RawMessage(payload), time.Now())
}

func TestStorage_SaveAndGet(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{"pipe_diameter": 530}`)
	require.NoError(t, s.Save(ctx, record))

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.ClientID, got.ClientID)
	assert.Equal(t, models.KindCalculationRecord, got.Kind)
	assert.Equal(t, models.StatusPending, got.SyncStatus)
	assert.JSONEq(t, `{"pipe_diameter": 530}`, string(got.Payload))
	assert.False(t, got.Deleted)
	assert.Empty(t, got.ServerID)
}

func TestStorage_SaveDuplicateID(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindParameterSet, `{"name": "ГОСТ 10704"}`)
	require.NoError(t, s.Save(ctx, record))

	err := s.Save(ctx, record)
	assert.Error(t, err)
}

func TestStorage_SaveInvalidRecord(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		mutate func(*models.Record)
		name   string
	}{
		{name: "empty id", mutate: func(r *models.Record) { r.ID = "" }},
		{name: "empty client id", mutate: func(r *models.Record) { r.ClientID = "" }},
		{name: "unknown kind", mutate: func(r *models.Record) { r.Kind = "note" }},
		{name: "unknown status", mutate: func(r *models.Record) { r.SyncStatus = "done" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := testRecord(models.KindCalculationRecord, `{}`)
			tt.mutate(record)

			err := s.Save(ctx, record)
			assert.ErrorIs(t, err, storage.ErrInvalidRecord)
		})
	}
}

func TestStorage_GetNotFound(t *testing.T) {
	s := setupTestStorage(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	_, err = s.GetByClientID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestStorage_GetByClientID(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{"hole_diameter": 108}`)
	require.NoError(t, s.Save(ctx, record))

	got, err := s.GetByClientID(ctx, record.ClientID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
}

func TestStorage_Update(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindParameterSet, `{"wall": 6}`)
	require.NoError(t, s.Save(ctx, record))

	record.Payload = json.RawMessage(`{"wall": 8}`)
	record.UpdatedAt = record.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.Update(ctx, record))

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"wall": 8}`, string(got.Payload))
}

func TestStorage_UpdateNotFound(t *testing.T) {
	s := setupTestStorage(t)

	record := testRecord(models.KindParameterSet, `{}`)
	err := s.Update(context.Background(), record)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestStorage_Delete(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{}`)
	require.NoError(t, s.Save(ctx, record))

	require.NoError(t, s.Delete(ctx, record.ID))

	_, err := s.Get(ctx, record.ID)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	assert.ErrorIs(t, s.Delete(ctx, record.ID), storage.ErrRecordNotFound)
}

func TestStorage_Query(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	base := time.Now()
	for i, kind := range []models.RecordKind{
		models.KindCalculationRecord,
		models.KindCalculationRecord,
		models.KindParameterSet,
	} {
		record := models.NewRecord(kind, json.RawMessage(`{}`), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Save(ctx, record))
	}

	all, err := s.Query(ctx, storage.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Сортировка по updated_at desc: последняя сохраненная идет первой
	assert.Equal(t, models.KindParameterSet, all[0].Kind)

	calcs, err := s.Query(ctx, storage.QueryFilter{Kind: models.KindCalculationRecord})
	require.NoError(t, err)
	assert.Len(t, calcs, 2)

	pending, err := s.Query(ctx, storage.QueryFilter{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	limited, err := s.Query(ctx, storage.QueryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, all[1].ID, limited[0].ID)
}

func TestStorage_StatusLifecycle(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{"flange": "DN100"}`)
	require.NoError(t, s.Save(ctx, record))

	require.NoError(t, s.MarkSyncing(ctx, record.ID))

	fingerprint, err := record.Fingerprint()
	require.NoError(t, err)

	require.NoError(t, s.MarkSynced(ctx, record.ID, "srv-1", 12345, fingerprint))

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	assert.Equal(t, "srv-1", got.ServerID)
	assert.Equal(t, int64(12345), got.ServerTimestamp)
	assert.Equal(t, fingerprint, got.BaseFingerprint)
	assert.Empty(t, got.LastError)
}

func TestStorage_MarkFailedAndPending(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindParameterSet, `{}`)
	require.NoError(t, s.Save(ctx, record))

	require.NoError(t, s.MarkSyncing(ctx, record.ID))
	require.NoError(t, s.MarkFailed(ctx, record.ID, "server error: 500"))

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.SyncStatus)
	assert.Equal(t, "server error: 500", got.LastError)

	// Ручной ре-синк возвращает запись в pending и очищает ошибку
	require.NoError(t, s.MarkPending(ctx, record.ID))

	got, err = s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.SyncStatus)
	assert.Empty(t, got.LastError)
}

func TestStorage_InvalidTransition(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{}`)
	require.NoError(t, s.Save(ctx, record))

	// pending -> synced без syncing запрещен
	err := s.MarkSynced(ctx, record.ID, "srv-1", 1, "fp")
	assert.ErrorIs(t, err, storage.ErrInvalidRecord)

	// pending -> failed тоже
	err = s.MarkFailed(ctx, record.ID, "boom")
	assert.ErrorIs(t, err, storage.ErrInvalidRecord)
}

func TestStorage_MarkConflict(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{}`)
	require.NoError(t, s.Save(ctx, record))

	require.NoError(t, s.MarkSyncing(ctx, record.ID))
	require.NoError(t, s.MarkConflict(ctx, record.ID))

	got, err := s.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, got.SyncStatus)

	// Из конфликта можно только обратно в pending
	require.NoError(t, s.MarkPending(ctx, record.ID))
}

func TestStorage_ApplyServerRecord_New(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	incoming := testRecord(models.KindCalculationRecord, `{"offset": 1.5}`)
	incoming.ServerID = "srv-42"
	incoming.ServerTimestamp = 777

	require.NoError(t, s.ApplyServerRecord(ctx, incoming))

	got, err := s.GetByClientID(ctx, incoming.ClientID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	assert.Equal(t, "srv-42", got.ServerID)
	assert.Equal(t, int64(777), got.ServerTimestamp)

	fingerprint, err := models.Fingerprint(incoming.Payload)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, got.BaseFingerprint)
}

func TestStorage_ApplyServerRecord_Overwrite(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	// Локальная копия синхронизирована и с тех пор не менялась
	local := testRecord(models.KindCalculationRecord, `{"v": 1}`)
	require.NoError(t, s.Save(ctx, local))
	require.NoError(t, s.MarkSyncing(ctx, local.ID))

	fingerprint, err := local.Fingerprint()
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced(ctx, local.ID, "srv-1", 50, fingerprint))

	serverCopy := local.Clone()
	serverCopy.Payload = json.RawMessage(`{"v": 2}`)
	serverCopy.ServerID = "srv-1"
	serverCopy.ServerTimestamp = 100
	serverCopy.UpdatedAt = local.UpdatedAt.Add(time.Hour)

	require.NoError(t, s.ApplyServerRecord(ctx, serverCopy))

	got, err := s.Get(ctx, local.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": 2}`, string(got.Payload))
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	// Локальный id сохранился
	assert.Equal(t, local.ID, got.ID)
}

func TestStorage_ApplyServerRecord_RefusesUnsyncedLocalEdit(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	// Локальная правка еще не дошла до сервера
	local := testRecord(models.KindCalculationRecord, `{"v": "local edit"}`)
	require.NoError(t, s.Save(ctx, local))

	serverCopy := local.Clone()
	serverCopy.Payload = json.RawMessage(`{"v": "server copy"}`)
	serverCopy.ServerID = "srv-1"
	serverCopy.ServerTimestamp = 100

	err := s.ApplyServerRecord(ctx, serverCopy)
	assert.ErrorIs(t, err, storage.ErrUnsyncedLocalChanges)

	// Локальная правка не тронута
	got, err := s.Get(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.SyncStatus)
	assert.JSONEq(t, `{"v": "local edit"}`, string(got.Payload))

	// Мягкое удаление, не дошедшее до сервера, тоже защищено, даже
	// когда payload совпадает
	require.NoError(t, s.MarkSyncing(ctx, local.ID))
	fingerprint, err := local.Fingerprint()
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced(ctx, local.ID, "srv-1", 100, fingerprint))

	deleted, err := s.Get(ctx, local.ID)
	require.NoError(t, err)
	deleted.Deleted = true
	deleted.SyncStatus = models.StatusPending
	require.NoError(t, s.Update(ctx, deleted))

	sameContent := deleted.Clone()
	sameContent.Deleted = false
	sameContent.ServerTimestamp = 200

	err = s.ApplyServerRecord(ctx, sameContent)
	assert.ErrorIs(t, err, storage.ErrUnsyncedLocalChanges)
}

func TestStorage_ApplyServerRecord_SameContentUpgradesPending(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	// Осиротевшая загрузка: то же содержимое уже есть на сервере
	local := testRecord(models.KindCalculationRecord, `{"v": 1}`)
	require.NoError(t, s.Save(ctx, local))

	serverCopy := local.Clone()
	serverCopy.ServerID = "srv-1"
	serverCopy.ServerTimestamp = 100

	require.NoError(t, s.ApplyServerRecord(ctx, serverCopy))

	got, err := s.Get(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	assert.Equal(t, "srv-1", got.ServerID)
	assert.NotEmpty(t, got.BaseFingerprint)
}

func TestStorage_MaxServerTimestamp(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	ts, err := s.MaxServerTimestamp(ctx)
	require.NoError(t, err)
	assert.Zero(t, ts)

	for _, serverTS := range []int64{10, 300, 42} {
		record := testRecord(models.KindParameterSet, `{}`)
		record.ServerTimestamp = serverTS
		require.NoError(t, s.Save(ctx, record))
	}

	ts, err = s.MaxServerTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), ts)
}

func TestStorage_IntegrityCheck(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	record := testRecord(models.KindCalculationRecord, `{}`)
	require.NoError(t, s.Save(ctx, record))

	require.NoError(t, s.IntegrityCheck(ctx))
}

func TestStorage_IntegrityCheck_RowViolation(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	// Запись со статусом synced, но без server_id и baseline
	_, err := s.DB().ExecContext(ctx, `
		INSERT INTO records (id, client_id, kind, payload, sync_status, created_at, updated_at)
		VALUES ('r1', 'c1', 'calculation_record', '{}', 'synced', 0, 0)
	`)
	require.NoError(t, err)

	err = s.IntegrityCheck(ctx)
	assert.ErrorIs(t, err, storage.ErrIntegrityCheckFailed)
}
