package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pipecalc/pipesync/internal/crypto"
)

// Fingerprint возвращает SHA256 отпечаток канонической формы JSON payload.
// Канонизация гарантирует, что отпечаток не зависит от порядка ключей и
// форматирования исходного JSON. Числа сохраняются как исходные JSON токены
// (json.Number), поэтому перекодирование float не вносит дрейф.
func Fingerprint(payload json.RawMessage) (string, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return crypto.HashSHA256Hex(canonical), nil
}

// CanonicalJSON приводит JSON к канонической форме: компактная запись,
// ключи объектов отсортированы лексикографически на всех уровнях вложенности.
func CanonicalJSON(payload json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	// UseNumber сохраняет числовые литералы как есть, без прохода через float64
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeCanonical рекурсивно записывает значение в канонической форме
func encodeCanonical(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("failed to encode key %q: %w", k, err)
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		// исходный числовой литерал, без переформатирования
		buf.WriteString(v.String())
		return nil

	default:
		// string, bool, nil
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode value: %w", err)
		}
		buf.Write(b)
		return nil
	}
}
