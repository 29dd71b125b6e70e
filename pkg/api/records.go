package api

import "encoding/json"

// Kind значения для поля kind в записях синхронизации
const (
	KindCalculationRecord = "calculation_record"
	KindParameterSet      = "parameter_set"
)

// ServerRecord представляет серверную копию записи, возвращаемую при скачивании дельты.
// Payload передается как есть (opaque JSON): сервер и движок синхронизации
// не интерпретируют его содержимое.
type ServerRecord struct {
	ClientID        string          `json:"client_id"`        // стабильный идентификатор, назначенный клиентом при создании
	ServerID        string          `json:"server_id"`        // идентификатор записи на сервере
	Kind            string          `json:"kind"`             // calculation_record | parameter_set
	Payload         json.RawMessage `json:"payload"`          // opaque данные расчета / набора параметров
	ServerTimestamp int64           `json:"server_timestamp"` // unix millis момента записи на сервере
	CreatedAt       int64           `json:"created_at"`       // unix millis создания
	UpdatedAt       int64           `json:"updated_at"`       // unix millis последнего изменения
	Deleted         bool            `json:"deleted"`          // soft delete флаг
}

// UploadRecordRequest представляет загрузку одной локальной записи на сервер
type UploadRecordRequest struct {
	ClientID  string          `json:"client_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
	Deleted   bool            `json:"deleted"`
}

// UploadRecordResponse представляет подтверждение сервера после загрузки
type UploadRecordResponse struct {
	ServerID        string `json:"server_id"`
	ServerTimestamp int64  `json:"server_timestamp"`
}

// DeltaResponse представляет ответ сервера на запрос изменений после watermark
type DeltaResponse struct {
	Records         []ServerRecord `json:"records"`
	ServerTimestamp int64          `json:"server_timestamp"` // текущее время сервера, новый watermark
}
