package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "sorts keys",
			input: `{"b": 2, "a": 1}`,
			want:  `{"a":1,"b":2}`,
		},
		{
			name:  "sorts nested keys",
			input: `{"outer": {"z": 1, "a": {"y": 2, "b": 3}}}`,
			want:  `{"outer":{"a":{"b":3,"y":2},"z":1}}`,
		},
		{
			name:  "strips whitespace",
			input: "{\n  \"a\": 1,\n  \"b\": [1, 2, 3]\n}",
			want:  `{"a":1,"b":[1,2,3]}`,
		},
		{
			name:  "keeps number literals verbatim",
			input: `{"a": 0.1, "b": 1e9, "c": 12345678901234567890}`,
			want:  `{"a":0.1,"b":1e9,"c":12345678901234567890}`,
		},
		{
			name:  "preserves array order",
			input: `{"a": [3, 1, 2]}`,
			want:  `{"a":[3,1,2]}`,
		},
		{
			name:  "null bool string",
			input: `{"n": null, "t": true, "s": "значение"}`,
			want:  `{"n":null,"s":"значение","t":true}`,
		},
		{
			name:    "empty payload",
			input:   ``,
			wantErr: true,
		},
		{
			name:    "broken json",
			input:   `{broken`,
			wantErr: true,
		},
		{
			name:    "trailing garbage",
			input:   `{"a": 1} extra`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalJSON(json.RawMessage(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFingerprint_KeyOrderIndependent(t *testing.T) {
	// Одни данные в разном порядке ключей и форматировании
	first, err := Fingerprint(json.RawMessage(`{"pipe_diameter": 530, "wall_thickness": 8}`))
	require.NoError(t, err)

	second, err := Fingerprint(json.RawMessage("{\"wall_thickness\": 8,\n \"pipe_diameter\": 530}"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex sha256
}

func TestFingerprint_SensitiveToValues(t *testing.T) {
	first, err := Fingerprint(json.RawMessage(`{"wall": 8}`))
	require.NoError(t, err)
	second, err := Fingerprint(json.RawMessage(`{"wall": 9}`))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestFingerprint_NumberFormattingStable(t *testing.T) {
	// 1e9 и 1000000000 математически равны, но это разные литералы:
	// канонизация сознательно не нормализует числа, чтобы не зависеть
	// от float-представления
	asExponent, err := Fingerprint(json.RawMessage(`{"v": 1e9}`))
	require.NoError(t, err)
	asInteger, err := Fingerprint(json.RawMessage(`{"v": 1000000000}`))
	require.NoError(t, err)

	assert.NotEqual(t, asExponent, asInteger)

	// Зато одинаковый литерал стабилен всегда
	again, err := Fingerprint(json.RawMessage(`{"v": 1e9}`))
	require.NoError(t, err)
	assert.Equal(t, asExponent, again)
}

func TestFingerprint_InvalidPayload(t *testing.T) {
	_, err := Fingerprint(json.RawMessage(`{broken`))
	require.Error(t, err)

	_, err = Fingerprint(nil)
	require.Error(t, err)
}
