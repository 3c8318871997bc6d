package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/user"
	repo "taskScheduler/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	start := time.Now()
	defer warnIfSlow("create_user", start)

	if userToCreate.CreatedAt.IsZero() {
		userToCreate.CreatedAt = time.Now()
	}

	query := `INSERT INTO users (username, password_hash, created_at)
				VALUES ($1, $2, $3)
				RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		userToCreate.Username,
		userToCreate.PasswordHash,
		userToCreate.CreatedAt,
	).Scan(&userToCreate.ID)
	if err != nil {
		if violates(err, codeUniqueViolation, "users_username_key") {
			return repo.ErrDuplicateUsername
		}
		logger.Error("Repository: Не удалось добавить пользователя", err)
		return fmt.Errorf("добавление пользователя: %w", err)
	}

	userToCreate.ResetToken = nil
	userToCreate.ResetExpiresAt = nil
	return nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, reset_token, reset_expires_at, created_at
				FROM users
				WHERE username = $1`, username)
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, reset_token, reset_expires_at, created_at
				FROM users
				WHERE id = $1`, id)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	start := time.Now()
	defer warnIfSlow("get_user", start)

	found := &user.User{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&found.ID,
		&found.Username,
		&found.PasswordHash,
		&found.ResetToken,
		&found.ResetExpiresAt,
		&found.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	found.CreatedAt = found.CreatedAt.UTC()
	if found.ResetExpiresAt != nil {
		expiresAt := found.ResetExpiresAt.UTC()
		found.ResetExpiresAt = &expiresAt
	}
	return found, nil
}

func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	start := time.Now()
	defer warnIfSlow("update_password", start)

	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		logger.Error("Repository: Не удалось обновить пароль", err, zap.Int64("user_id", id))
		return fmt.Errorf("обновление пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	start := time.Now()
	defer warnIfSlow("set_reset_token", start)

	query := `UPDATE users
				SET reset_token = $1,
					reset_expires_at = $2
				WHERE id = $3`

	tag, err := s.pool.Exec(ctx, query, token, expiresAt, id)
	if err != nil {
		if violates(err, codeUniqueViolation, "users_reset_token_key") {
			return repo.ErrDuplicateToken
		}
		logger.Error("Repository: Не удалось сохранить токен сброса", err, zap.Int64("user_id", id))
		return fmt.Errorf("сохранение токена сброса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ConsumeResetToken меняет хэш и гасит токен одним условным UPDATE.
// Конкурентный второй запрос после снятия блокировки строки видит reset_token = NULL.
func (s *Storage) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	start := time.Now()
	defer warnIfSlow("consume_reset_token", start)

	query := `UPDATE users
				SET password_hash = $1,
					reset_token = NULL,
					reset_expires_at = NULL
				WHERE reset_token = $2 AND reset_expires_at > $3
				RETURNING id`

	var userID int64
	err := s.pool.QueryRow(ctx, query, passwordHash, token, now).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось применить токен сброса", err)
		return 0, fmt.Errorf("применение токена сброса: %w", err)
	}
	return userID, nil
}

func (s *Storage) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE users
				SET reset_token = NULL,
					reset_expires_at = NULL
				WHERE reset_token IS NOT NULL AND reset_expires_at <= $1`

	tag, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		logger.Error("Repository: Не удалось очистить токены сброса", err)
		return 0, fmt.Errorf("очистка токенов сброса: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
