package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// MaxPayloadSize максимальный размер payload в байтах (1MB).
	// Расчеты врезки и наборы параметров на порядки меньше; лимит защищает
	// локальную БД и сервер от случайно раздутых данных.
	MaxPayloadSize = 1 << 20
)

// ValidatePayload проверяет, что payload пригоден для синхронизации:
// непустой JSON объект не больше MaxPayloadSize.
// Payload остается непрозрачным: проверяется только форма, не содержимое.
func ValidatePayload(payload json.RawMessage) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("payload cannot be empty")
	}

	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("payload exceeds %d bytes", MaxPayloadSize)
	}

	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON")
	}

	// Движку синхронизации нужен объект: отпечаток считается по канонической
	// форме, а верхнеуровневый объект гарантирует стабильную структуру.
	trimmed := bytes.TrimSpace(payload)
	if trimmed[0] != '{' {
		return fmt.Errorf("payload must be a JSON object")
	}

	return nil
}

// ValidateUsername проверяет минимальные требования к username
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(username) < 3 || len(username) > 32 {
		return fmt.Errorf("username must be 3-32 characters long")
	}
	return nil
}
