package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/user"
	"taskScheduler/internal/repository"
	"taskScheduler/internal/security"

	"go.uber.org/zap"
)

// CredentialService хранит пользователей и проверяет их пароли.
type CredentialService struct {
	users  UserRepository
	hasher PasswordHasher
	opts   options
}

func NewCredentialService(users UserRepository, hasher PasswordHasher, opts ...Option) *CredentialService {
	return &CredentialService{
		users:  users,
		hasher: hasher,
		opts:   applyOptions(opts),
	}
}

func (s *CredentialService) Register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, NewValidationError("username", "не может быть пустым")
	}
	if utf8.RuneCountInString(username) > user.MaxUsernameLength {
		return 0, NewValidationError("username", fmt.Sprintf("не длиннее %d символов", user.MaxUsernameLength))
	}
	if err := validatePassword(password); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("регистрация: %w", err)
	}

	u := &user.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.opts.now(),
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			logger.Info("Service: Имя пользователя занято", zap.String("username", username))
			return 0, NewDuplicateUsername(username)
		}
		return 0, fmt.Errorf("создание пользователя: %w", err)
	}

	logger.Info("Service: Пользователь зарегистрирован",
		zap.Int64("user_id", u.ID),
		zap.String("username", username))
	return u.ID, nil
}

func (s *CredentialService) Verify(ctx context.Context, username, password string) (int64, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return 0, NewAuthFailure()
		}
		return 0, fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			logger.Error("Service: Повреждённый хеш пароля", err, zap.Int64("user_id", u.ID))
		}
		return 0, NewAuthFailure()
	}

	return u.ID, nil
}

func (s *CredentialService) SetPassword(ctx context.Context, userID int64, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("смена пароля: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("пользователь", strconv.FormatInt(userID, 10))
		}
		return fmt.Errorf("смена пароля: %w", err)
	}

	logger.Info("Service: Пароль изменён", zap.Int64("user_id", userID))
	return nil
}

func (s *CredentialService) GetUser(ctx context.Context, userID int64) (*user.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("пользователь", strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

// validatePassword отсекает пароли, которые bcrypt не сможет захешировать.
func validatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "не может быть пустым")
	}
	if len(password) > security.MaxPasswordBytes {
		return NewValidationError("password", fmt.Sprintf("не длиннее %d байт", security.MaxPasswordBytes))
	}
	return nil
}
