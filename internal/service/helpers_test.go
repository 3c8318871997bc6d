package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskScheduler/internal/models/task"
	"taskScheduler/internal/models/user"
	"taskScheduler/internal/repository/inmemory"
	"taskScheduler/internal/repository/sessions"
	"taskScheduler/internal/security"
	"taskScheduler/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "scheduler-test-session-secret-0123456789"

// управляемые часы для проверок сроков жизни
type fakeClock struct {
	mtx sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	storage     *inmemory.Storage
	store       *sessions.MemoryStore
	clock       *fakeClock
	credentials *service.CredentialService
	sessions    *service.SessionService
	resets      *service.ResetService
	tasks       *service.TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := security.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		storage: inmemory.New(),
		store:   sessions.NewMemoryStore(),
		clock:   newFakeClock(),
	}
	clock := service.WithClock(f.clock.Now)

	f.credentials = service.NewCredentialService(f.storage, hasher, clock)
	f.sessions = service.NewSessionService(f.credentials, f.store, security.NewSessionSigner(testSecret), 24*time.Hour, clock)
	f.resets = service.NewResetService(f.storage, hasher, time.Hour, clock)
	f.tasks = service.NewTaskService(f.storage, clock)
	return f
}

func (f *fixture) register(t *testing.T, username, password string) int64 {
	t.Helper()
	id, err := f.credentials.Register(context.Background(), username, password)
	require.NoError(t, err)
	return id
}

// MockUserRepository - мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, token, expiresAt)
	return args.Error(0)
}

func (m *MockUserRepository) ConsumeResetToken(ctx context.Context, token, hash string, now time.Time) (int64, error) {
	args := m.Called(ctx, token, hash, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

var _ service.UserRepository = (*MockUserRepository)(nil)

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)
