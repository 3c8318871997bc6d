package handlers_test

import (
	"context"
	"time"

	"taskScheduler/internal/handlers"
	"taskScheduler/internal/models/session"
	"taskScheduler/internal/models/task"

	"github.com/stretchr/testify/mock"
)

// MockTaskService - мок сервиса задач
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) ListTasks(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) CreateTask(ctx context.Context, ownerID int64, title, rawDate string) (*task.Task, error) {
	args := m.Called(ctx, ownerID, title, rawDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	args := m.Called(ctx, ownerID, taskID)
	return args.Error(0)
}

var _ handlers.TaskService = (*MockTaskService)(nil)

type MockCredentialService struct {
	mock.Mock
}

func (m *MockCredentialService) Register(ctx context.Context, username, password string) (int64, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(int64), args.Error(1)
}

var _ handlers.CredentialService = (*MockCredentialService)(nil)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Authenticate(ctx context.Context, username, password string) (*session.Session, string, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*session.Session), args.String(1), args.Error(2)
}

func (m *MockSessionService) EndSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionService) TTL() time.Duration {
	return 24 * time.Hour
}

var _ handlers.SessionService = (*MockSessionService)(nil)

type MockResetService struct {
	mock.Mock
}

func (m *MockResetService) RequestReset(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *MockResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

var _ handlers.ResetService = (*MockResetService)(nil)
