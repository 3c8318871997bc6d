package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/user"
	repo "taskScheduler/internal/repository"

	"go.uber.org/zap"
)

const userColumns = `id, username, password_hash, reset_token, reset_expires_at, created_at`

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	start := time.Now()
	defer warnIfSlow("create_user", start)

	if userToCreate.CreatedAt.IsZero() {
		userToCreate.CreatedAt = time.Now()
	}

	query := `INSERT INTO users (username, password_hash, created_at)
				VALUES (?, ?, ?)
				RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		userToCreate.Username,
		userToCreate.PasswordHash,
		toUnix(userToCreate.CreatedAt),
	).Scan(&userToCreate.ID)
	if err != nil {
		if isConstraint(err, "users.username") {
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
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return s.getUser(ctx, query, username)
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.getUser(ctx, query, id)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	start := time.Now()
	defer warnIfSlow("get_user", start)

	var (
		found          user.User
		resetToken     sql.NullString
		resetExpiresAt sql.NullInt64
		createdAt      int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&found.ID,
		&found.Username,
		&found.PasswordHash,
		&resetToken,
		&resetExpiresAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	found.CreatedAt = fromUnix(createdAt)
	if resetToken.Valid {
		found.ResetToken = &resetToken.String
	}
	if resetExpiresAt.Valid {
		expiresAt := fromUnix(resetExpiresAt.Int64)
		found.ResetExpiresAt = &expiresAt
	}
	return &found, nil
}

func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	start := time.Now()
	defer warnIfSlow("update_password", start)

	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		logger.Error("Repository: Не удалось обновить пароль", err, zap.Int64("user_id", id))
		return fmt.Errorf("обновление пароля: %w", err)
	}
	return requireAffected(res)
}

func (s *Storage) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	start := time.Now()
	defer warnIfSlow("set_reset_token", start)

	query := `UPDATE users
				SET reset_token = ?,
					reset_expires_at = ?
				WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, token, toUnix(expiresAt), id)
	if err != nil {
		if isConstraint(err, "users.reset_token") {
			return repo.ErrDuplicateToken
		}
		logger.Error("Repository: Не удалось сохранить токен сброса", err, zap.Int64("user_id", id))
		return fmt.Errorf("сохранение токена сброса: %w", err)
	}
	return requireAffected(res)
}

// ConsumeResetToken меняет хэш и гасит токен одним условным UPDATE, поэтому токен срабатывает не больше одного раза.
func (s *Storage) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	start := time.Now()
	defer warnIfSlow("consume_reset_token", start)

	query := `UPDATE users
				SET password_hash = ?,
					reset_token = NULL,
					reset_expires_at = NULL
				WHERE reset_token = ? AND reset_expires_at > ?
				RETURNING id`

	var userID int64
	err := s.db.QueryRowContext(ctx, query, passwordHash, token, toUnix(now)).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
				WHERE reset_token IS NOT NULL AND reset_expires_at <= ?`

	res, err := s.db.ExecContext(ctx, query, toUnix(now))
	if err != nil {
		logger.Error("Repository: Не удалось очистить токены сброса", err)
		return 0, fmt.Errorf("очистка токенов сброса: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("количество строк: %w", err)
	}
	return int(n), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("количество строк: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}
