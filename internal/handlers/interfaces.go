package handlers

import (
	"context"
	"time"

	"taskScheduler/internal/models/session"
	"taskScheduler/internal/models/task"
)

type TaskService interface {
	HealthCheck(context.Context) error
	ListTasks(ctx context.Context, ownerID int64) ([]*task.Task, error)
	CreateTask(ctx context.Context, ownerID int64, title, rawDate string) (*task.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID int64) error
}

type CredentialService interface {
	Register(ctx context.Context, username, password string) (int64, error)
}

type SessionService interface {
	Authenticate(ctx context.Context, username, password string) (*session.Session, string, error)
	EndSession(ctx context.Context, token string) error
	TTL() time.Duration
}

type ResetService interface {
	RequestReset(ctx context.Context, username string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}
