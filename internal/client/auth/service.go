package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pipecalc/pipesync/internal/client/api"
	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/crypto"
	"github.com/pipecalc/pipesync/internal/validation"
	pkgapi "github.com/pipecalc/pipesync/pkg/api"
)

var (
	// ErrNotUnlocked ключ шифрования не выведен: нужен Login или Unlock
	ErrNotUnlocked = errors.New("encryption key is not set, login or unlock first")

	// ErrTokenExpired локальный access token просрочен, нужен повторный login
	ErrTokenExpired = errors.New("access token expired")
)

// Service предоставляет функции авторизации. Токены хранятся в BoltDB
// в зашифрованном виде; ключ шифрования выводится из пароля пользователя
// и живет только в памяти процесса.
type Service struct {
	apiClient     api.ClientAPI
	store         *Store
	logger        *slog.Logger
	encryptionKey []byte
}

// NewService создает новый сервис авторизации
func NewService(apiClient api.ClientAPI, store *Store, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
	}
}

// Login выполняет аутентификацию пользователя и сохраняет токены
// в локальное хранилище в зашифрованном виде
func (s *Service) Login(ctx context.Context, username, password string) error {
	// Валидация входных данных
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	// 1. Аутентификация на сервере (пароль уходит только по TLS)
	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// 2. Деривируем ключ шифрования токенов из пароля и public salt
	key, err := crypto.DeriveEncryptionKeyFromBase64Salt(password, username, resp.PublicSalt)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}

	// 3. Сохраняем auth данные (токены будут зашифрованы в Store)
	auth := &storage.AuthData{
		Username:     username,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		PublicSalt:   resp.PublicSalt,
		ExpiresAt:    tokenExpiry(resp.AccessToken, resp.ExpiresIn),
	}

	if err := s.store.SaveAuth(ctx, auth, key); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	s.encryptionKey = key
	s.logger.Info("login successful", "username", username)

	return nil
}

// Unlock выводит ключ шифрования из пароля для уже сохраненной сессии.
// Нужен в новом процессе: токены лежат в BoltDB зашифрованными, а ключ
// нигде не хранится.
func (s *Service) Unlock(ctx context.Context, password string) error {
	auth, err := s.store.GetAuthEncryptData(ctx)
	if err != nil {
		return fmt.Errorf("failed to load auth data: %w", err)
	}

	key, err := crypto.DeriveEncryptionKeyFromBase64Salt(password, auth.Username, auth.PublicSalt)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}

	// Проверяем ключ попыткой расшифровки: GCM обнаружит неверный пароль
	if _, err := s.store.GetAuthDecryptData(ctx, key); err != nil {
		return fmt.Errorf("wrong password: %w", err)
	}

	s.encryptionKey = key
	return nil
}

// AccessToken возвращает расшифрованный access token для запросов к серверу.
// Возвращает ErrTokenExpired, если срок действия истек.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	if s.encryptionKey == nil {
		return "", ErrNotUnlocked
	}

	auth, err := s.store.GetAuthDecryptData(ctx, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to load auth data: %w", err)
	}

	if time.Now().Unix() >= auth.ExpiresAt {
		return "", ErrTokenExpired
	}

	return auth.AccessToken, nil
}

// Username возвращает имя текущего пользователя без расшифровки токенов
func (s *Service) Username(ctx context.Context) (string, error) {
	auth, err := s.store.GetAuthEncryptData(ctx)
	if err != nil {
		return "", err
	}
	return auth.Username, nil
}

// IsAuthenticated проверяет наличие непросроченной сессии
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.store.IsAuthenticated(ctx)
}

// Logout удаляет локальные данные авторизации
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete auth data: %w", err)
	}

	s.encryptionKey = nil
	s.logger.Info("logout successful")

	return nil
}

// tokenExpiry вычисляет момент истечения access token в unix секундах.
// Предпочитает exp claim из самого JWT (без проверки подписи, подпись
// проверяет сервер); expiresIn из ответа служит fallback.
func tokenExpiry(accessToken string, expiresIn int64) int64 {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Unix()
		}
	}

	return time.Now().Unix() + expiresIn
}
