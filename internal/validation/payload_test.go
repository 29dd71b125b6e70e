package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid object", payload: `{"pipe_diameter": 530}`},
		{name: "nested object", payload: `{"params": {"wall": 8}, "results": [1, 2]}`},
		{name: "empty object", payload: `{}`},
		{name: "object with whitespace", payload: "  \n {\"a\": 1} "},
		{name: "empty", payload: ``, wantErr: true},
		{name: "whitespace only", payload: "  \n\t ", wantErr: true},
		{name: "broken json", payload: `{broken`, wantErr: true},
		{name: "array", payload: `[1, 2, 3]`, wantErr: true},
		{name: "bare string", payload: `"text"`, wantErr: true},
		{name: "bare number", payload: `42`, wantErr: true},
		{name: "oversized", payload: `{"d": "` + strings.Repeat("x", MaxPayloadSize) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(json.RawMessage(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("engineer"))
	assert.NoError(t, ValidateUsername("abc"))

	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 33)))
}
