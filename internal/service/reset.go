package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultResetTokenTTL = time.Hour
	maxTokenAttempts     = 3
)

// ResetService выдаёт одноразовые токены сброса пароля и обменивает их на новый пароль.
type ResetService struct {
	users  UserRepository
	hasher PasswordHasher
	ttl    time.Duration
	opts   options
}

func NewResetService(users UserRepository, hasher PasswordHasher, ttl time.Duration, opts ...Option) *ResetService {
	if ttl <= 0 {
		ttl = defaultResetTokenTTL
	}
	return &ResetService{
		users:  users,
		hasher: hasher,
		ttl:    ttl,
		opts:   applyOptions(opts),
	}
}

// RequestReset заменяет любой ранее выданный токен пользователя новым.
func (s *ResetService) RequestReset(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", NewValidationError("username", "не может быть пустым")
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Сброс пароля для несуществующего пользователя")
			return "", NewNotFound("пользователь", username)
		}
		return "", fmt.Errorf("поиск пользователя: %w", err)
	}

	expiresAt := s.opts.now().Add(s.ttl)

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.opts.newToken()
		if err != nil {
			return "", err
		}

		err = s.users.SetResetToken(ctx, u.ID, token, expiresAt)
		if err == nil {
			logger.Info("Service: Выдан токен сброса пароля",
				zap.Int64("user_id", u.ID),
				zap.Time("expires_at", expiresAt))
			return token, nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return "", fmt.Errorf("сохранение токена сброса: %w", err)
		}
		logger.Warn("Service: Коллизия токена сброса", zap.Int("attempt", attempt))
	}

	return "", fmt.Errorf("сохранение токена сброса: %w", repository.ErrDuplicateToken)
}

// ResetPassword меняет пароль не более одного раза на каждый токен.
func (s *ResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return NewNotFound("токен сброса", "")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("сброс пароля: %w", err)
	}

	userID, err := s.users.ConsumeResetToken(ctx, token, hash, s.opts.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Предъявлен неизвестный или использованный токен сброса")
			return NewBusinessError(CodeNotFound, "Ссылка для сброса пароля недействительна или уже использована")
		}
		return fmt.Errorf("сброс пароля: %w", err)
	}

	logger.Info("Service: Пароль изменён по токену", zap.Int64("user_id", userID))
	return nil
}
