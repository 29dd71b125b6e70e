package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pipecalc/pipesync/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет операции сервера синхронизации, нужные клиенту
type ClientAPI interface {
	// Login выполняет аутентификацию пользователя
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)

	// UploadRecord загружает одну локальную запись на сервер
	UploadRecord(ctx context.Context, accessToken string, req api.UploadRecordRequest) (*api.UploadRecordResponse, error)

	// FetchRecordsSince скачивает записи, измененные на сервере после since (unix millis)
	FetchRecordsSince(ctx context.Context, accessToken string, since int64) (*api.DeltaResponse, error)

	// Health выполняет легкий reachability-запрос для монитора сети
	Health(ctx context.Context) error
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ ClientAPI = (*Client)(nil)

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// UploadRecord загружает одну локальную запись на сервер
func (c *Client) UploadRecord(ctx context.Context, accessToken string, req api.UploadRecordRequest) (*api.UploadRecordResponse, error) {
	var resp api.UploadRecordResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/records", accessToken, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("upload record request failed: %w", err)
	}
	return &resp, nil
}

// FetchRecordsSince скачивает дельту изменений после watermark
func (c *Client) FetchRecordsSince(ctx context.Context, accessToken string, since int64) (*api.DeltaResponse, error) {
	var resp api.DeltaResponse
	path := "/api/v1/records?since=" + strconv.FormatInt(since, 10)
	err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch records request failed: %w", err)
	}
	return &resp, nil
}

// Health выполняет reachability-запрос без аутентификации
func (c *Client) Health(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, nil); err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос и классифицирует ошибки
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatusError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classifyTransportError переводит ошибки транспортного уровня в таксономию.
// Таймауты отличаются от недоступности сети: для монитора сети это
// признак unstable, а не disconnected.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %s", ErrNetworkUnavailable, err)
}

// classifyStatusError переводит HTTP статусы в таксономию
func classifyStatusError(statusCode int, respBody []byte) error {
	message := string(respBody)

	var errResp api.ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
		if errResp.Message != "" {
			message += ": " + errResp.Message
		}
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w (%d): %s", ErrAuth, statusCode, message)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w (%d): %s", ErrValidation, statusCode, message)
	case statusCode == http.StatusRequestTimeout:
		return fmt.Errorf("%w (%d): %s", ErrTimeout, statusCode, message)
	case statusCode >= 500 || statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w (%d): %s", ErrServer, statusCode, message)
	default:
		return fmt.Errorf("request failed with status %d: %s", statusCode, message)
	}
}
