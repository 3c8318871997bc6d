package service

import (
	"context"
	"time"

	"taskScheduler/internal/models/session"
	"taskScheduler/internal/models/task"
	"taskScheduler/internal/models/user"
)

type UserRepository interface {
	CreateUser(context.Context, *user.User) error
	GetUserByUsername(context.Context, string) (*user.User, error)
	GetUserByID(context.Context, int64) (*user.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	// ConsumeResetToken одной операцией меняет хеш и обнуляет токен, возвращает ID пользователя.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (int64, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error)
}

type TaskRepository interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, *task.Task) error
	GetTaskByID(context.Context, int64) (*task.Task, error)
	ListTasksByOwner(context.Context, int64) ([]*task.Task, error)
	DeleteTask(context.Context, int64) error
}

type SessionStore interface {
	Save(context.Context, *session.Session) error
	Get(context.Context, string) (*session.Session, error)
	Delete(context.Context, string) error
	DeleteExpired(context.Context, time.Time) (int, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	CompareDummy(password string)
}
