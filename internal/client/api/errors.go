package api

import "errors"

// Классификация ошибок обмена с сервером. Оркестратор синхронизации
// решает по виду ошибки, возвращать ли запись в очередь с backoff
// (retriable) или помечать failed сразу (fatal).
var (
	// ErrNetworkUnavailable сервер недоступен: нет соединения, DNS, connection refused
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrTimeout запрос не уложился в таймаут
	ErrTimeout = errors.New("request timeout")

	// ErrServer сервер ответил 5xx
	ErrServer = errors.New("server error")

	// ErrAuth сервер отверг учетные данные (401/403)
	ErrAuth = errors.New("authentication failed")

	// ErrValidation сервер отверг содержимое запроса (400/422)
	ErrValidation = errors.New("validation failed")
)

// Retriable reports whether повторная попытка того же запроса имеет смысл.
// Сетевые сбои, таймауты и 5xx преходящи; ошибки аутентификации и
// валидации детерминированы и повторами не лечатся.
func Retriable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}
