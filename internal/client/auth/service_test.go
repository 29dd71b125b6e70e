package auth

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecalc/pipesync/internal/client/api"
	"github.com/pipecalc/pipesync/internal/crypto"
	pkgapi "github.com/pipecalc/pipesync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSaltBase64(t *testing.T) string {
	t.Helper()
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(salt)
}

func newTestService(t *testing.T, apiMock *api.ClientAPIMock) *Service {
	t.Helper()
	return NewService(apiMock, NewStore(&fakeAuthStorage{}), testLogger())
}

func TestService_LoginAndAccessToken(t *testing.T) {
	ctx := context.Background()
	salt := testSaltBase64(t)

	apiMock := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			assert.Equal(t, "engineer", req.Username)
			assert.Equal(t, "secret-password", req.Password)
			return &pkgapi.TokenResponse{
				AccessToken:  "opaque-access-token",
				RefreshToken: "opaque-refresh-token",
				ExpiresIn:    3600,
				PublicSalt:   salt,
			}, nil
		},
	}

	svc := newTestService(t, apiMock)

	require.NoError(t, svc.Login(ctx, "engineer", "secret-password"))
	assert.Len(t, apiMock.LoginCalls(), 1)

	// После login ключ в памяти, токен доступен
	token, err := svc.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-access-token", token)

	ok, err := svc.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_Login_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &api.ClientAPIMock{})

	// Слишком короткий username отклоняется до запроса к серверу
	assert.Error(t, svc.Login(ctx, "ab", "password"))

	// Пустой пароль
	assert.Error(t, svc.Login(ctx, "engineer", ""))
}

func TestService_Login_ServerError(t *testing.T) {
	ctx := context.Background()

	apiMock := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			return nil, api.ErrAuth
		},
	}

	svc := newTestService(t, apiMock)

	err := svc.Login(ctx, "engineer", "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrAuth)
}

func TestService_AccessToken_NotUnlocked(t *testing.T) {
	svc := newTestService(t, &api.ClientAPIMock{})

	_, err := svc.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNotUnlocked)
}

func TestService_Unlock(t *testing.T) {
	ctx := context.Background()
	salt := testSaltBase64(t)

	apiMock := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			return &pkgapi.TokenResponse{
				AccessToken:  "token",
				RefreshToken: "refresh",
				ExpiresIn:    3600,
				PublicSalt:   salt,
			}, nil
		},
	}

	store := NewStore(&fakeAuthStorage{})
	svc := NewService(apiMock, store, testLogger())
	require.NoError(t, svc.Login(ctx, "engineer", "secret-password"))

	// Новый процесс: тот же store, но ключ шифрования потерян
	restarted := NewService(apiMock, store, testLogger())

	_, err := restarted.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNotUnlocked)

	// Неверный пароль дает другой ключ, GCM расшифровка падает
	assert.Error(t, restarted.Unlock(ctx, "wrong-password"))

	require.NoError(t, restarted.Unlock(ctx, "secret-password"))

	token, err := restarted.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", token)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	salt := testSaltBase64(t)

	apiMock := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			return &pkgapi.TokenResponse{
				AccessToken:  "token",
				RefreshToken: "refresh",
				ExpiresIn:    3600,
				PublicSalt:   salt,
			}, nil
		},
	}

	svc := newTestService(t, apiMock)
	require.NoError(t, svc.Login(ctx, "engineer", "secret-password"))

	require.NoError(t, svc.Logout(ctx))

	ok, err := svc.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNotUnlocked)
}

func TestService_AccessToken_Expired(t *testing.T) {
	ctx := context.Background()
	salt := testSaltBase64(t)

	apiMock := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			// Токен не парсится как JWT, срок берется из expires_in:
			// отрицательное значение дает уже истекшую сессию
			return &pkgapi.TokenResponse{
				AccessToken:  "stale-token",
				RefreshToken: "refresh",
				ExpiresIn:    -60,
				PublicSalt:   salt,
			}, nil
		},
	}

	svc := newTestService(t, apiMock)
	require.NoError(t, svc.Login(ctx, "engineer", "secret-password"))

	_, err := svc.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Просроченный токен отсекается локально, без запросов к серверу
	assert.Len(t, apiMock.LoginCalls(), 1)
	assert.Empty(t, apiMock.UploadRecordCalls())
	assert.Empty(t, apiMock.FetchRecordsSinceCalls())
}

func TestTokenExpiry_FallbackToExpiresIn(t *testing.T) {
	// Непарсящийся токен: срок берется из expires_in
	expiry := tokenExpiry("not-a-jwt", 3600)
	assert.Greater(t, expiry, int64(0))
}
