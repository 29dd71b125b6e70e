package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSHA256Hex возвращает hex-encoded SHA256 хеш данных.
// Используется для отпечатков payload: хеш детерминирован, поэтому
// одинаковые канонические данные всегда дают одинаковый отпечаток.
func HashSHA256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
