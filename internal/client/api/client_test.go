package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecalc/pipesync/pkg/api"
)

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "engineer", req.Username)

		resp := api.TokenResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    3600,
			PublicSalt:   "c2FsdA==",
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.Login(context.Background(), api.LoginRequest{
		Username: "engineer",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
}

func TestClient_UploadRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/records", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var req api.UploadRecordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, api.KindCalculationRecord, req.Kind)
		assert.JSONEq(t, `{"pipe_diameter": 530}`, string(req.Payload))

		resp := api.UploadRecordResponse{
			ServerID:        "srv-1",
			ServerTimestamp: 1724000000123,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.UploadRecord(context.Background(), "token-123", api.UploadRecordRequest{
		ClientID: "client-1",
		Kind:     api.KindCalculationRecord,
		Payload:  json.RawMessage(`{"pipe_diameter": 530}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", resp.ServerID)
	assert.Equal(t, int64(1724000000123), resp.ServerTimestamp)
}

func TestClient_FetchRecordsSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/records", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		resp := api.DeltaResponse{
			Records: []api.ServerRecord{
				{
					ClientID:        "client-1",
					ServerID:        "srv-1",
					Kind:            api.KindParameterSet,
					Payload:         json.RawMessage(`{"name": "DN100"}`),
					ServerTimestamp: 100,
				},
			},
			ServerTimestamp: 200,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.FetchRecordsSince(context.Background(), "token-123", 42)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "srv-1", resp.Records[0].ServerID)
	assert.Equal(t, int64(200), resp.ServerTimestamp)
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	assert.NoError(t, client.Health(context.Background()))
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		wantErr    error
		name       string
		body       string
		statusCode int
		retriable  bool
	}{
		{
			name:       "unauthorized",
			statusCode: http.StatusUnauthorized,
			body:       `{"error": "invalid_token"}`,
			wantErr:    ErrAuth,
			retriable:  false,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			body:       `{"error": "forbidden"}`,
			wantErr:    ErrAuth,
			retriable:  false,
		},
		{
			name:       "bad request",
			statusCode: http.StatusBadRequest,
			body:       `{"error": "payload_too_large"}`,
			wantErr:    ErrValidation,
			retriable:  false,
		},
		{
			name:       "unprocessable entity",
			statusCode: http.StatusUnprocessableEntity,
			body:       `{"error": "bad_kind"}`,
			wantErr:    ErrValidation,
			retriable:  false,
		},
		{
			name:       "internal error",
			statusCode: http.StatusInternalServerError,
			body:       `oops`,
			wantErr:    ErrServer,
			retriable:  true,
		},
		{
			name:       "too many requests",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error": "rate_limited"}`,
			wantErr:    ErrServer,
			retriable:  true,
		},
		{
			name:       "request timeout",
			statusCode: http.StatusRequestTimeout,
			body:       ``,
			wantErr:    ErrTimeout,
			retriable:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL)

			err := client.Health(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retriable, Retriable(err))
		})
	}
}

func TestClient_NetworkUnavailable(t *testing.T) {
	// Закрытый сервер эмулирует отсутствие соединения
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)

	err := client.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.True(t, Retriable(err))
}

func TestRetriable_UnknownError(t *testing.T) {
	assert.False(t, Retriable(assert.AnError))
	assert.False(t, Retriable(nil))
}
