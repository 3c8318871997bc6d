// Package repotest содержит общий набор проверок, который проходят все реализации хранилища.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskScheduler/internal/models/task"
	"taskScheduler/internal/models/user"
	"taskScheduler/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Storage interface {
	HealthCheck(context.Context) error
	CreateUser(context.Context, *user.User) error
	GetUserByUsername(context.Context, string) (*user.User, error)
	GetUserByID(context.Context, int64) (*user.User, error)
	UpdatePassword(context.Context, int64, string) error
	SetResetToken(context.Context, int64, string, time.Time) error
	ConsumeResetToken(context.Context, string, string, time.Time) (int64, error)
	ClearExpiredResetTokens(context.Context, time.Time) (int, error)
	CreateTask(context.Context, *task.Task) error
	GetTaskByID(context.Context, int64) (*task.Task, error)
	ListTasksByOwner(context.Context, int64) ([]*task.Task, error)
	DeleteTask(context.Context, int64) error
}

// Factory возвращает пустое хранилище для одного подтеста.
type Factory func(t *testing.T) Storage

func Run(t *testing.T, newStorage Factory) {
	t.Run("HealthCheck", func(t *testing.T) { testHealthCheck(t, newStorage(t)) })
	t.Run("CreateUser", func(t *testing.T) { testCreateUser(t, newStorage(t)) })
	t.Run("DuplicateUsername", func(t *testing.T) { testDuplicateUsername(t, newStorage(t)) })
	t.Run("UpdatePassword", func(t *testing.T) { testUpdatePassword(t, newStorage(t)) })
	t.Run("ResetTokenLifecycle", func(t *testing.T) { testResetTokenLifecycle(t, newStorage(t)) })
	t.Run("ResetTokenUnique", func(t *testing.T) { testResetTokenUnique(t, newStorage(t)) })
	t.Run("ResetTokenExpiry", func(t *testing.T) { testResetTokenExpiry(t, newStorage(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newStorage(t)) })
	t.Run("TaskOwnerIsolation", func(t *testing.T) { testTaskOwnerIsolation(t, newStorage(t)) })
	t.Run("ConcurrentConsume", func(t *testing.T) { testConcurrentConsume(t, newStorage(t)) })
}

func MustCreateUser(t *testing.T, s Storage, username string) *user.User {
	t.Helper()
	u := &user.User{
		Username:     username,
		PasswordHash: "hash-" + username,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func MustCreateTask(t *testing.T, s Storage, ownerID int64, title string, date time.Time) *task.Task {
	t.Helper()
	tk := &task.Task{
		Title:     title,
		Date:      date,
		UserID:    ownerID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateTask(context.Background(), tk))
	require.NotZero(t, tk.ID)
	return tk
}

func testHealthCheck(t *testing.T, s Storage) {
	assert.NoError(t, s.HealthCheck(context.Background()))
}

func testCreateUser(t *testing.T, s Storage) {
	ctx := context.Background()
	alice := MustCreateUser(t, s, "alice")

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)
	assert.Equal(t, "hash-alice", byName.PasswordHash)
	assert.Nil(t, byName.ResetToken)

	byID, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.GetUserByID(ctx, alice.ID+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testDuplicateUsername(t *testing.T, s Storage) {
	ctx := context.Background()
	first := MustCreateUser(t, s, "alice")

	err := s.CreateUser(ctx, &user.User{Username: "alice", PasswordHash: "other", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrDuplicateUsername)

	stored, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "hash-alice", stored.PasswordHash)
}

func testUpdatePassword(t *testing.T, s Storage) {
	ctx := context.Background()
	alice := MustCreateUser(t, s, "alice")

	require.NoError(t, s.UpdatePassword(ctx, alice.ID, "new-hash"))
	stored, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)

	assert.ErrorIs(t, s.UpdatePassword(ctx, alice.ID+100, "x"), repository.ErrNotFound)
}

func testResetTokenLifecycle(t *testing.T, s Storage) {
	ctx := context.Background()
	now := time.Now().UTC()
	alice := MustCreateUser(t, s, "alice")

	require.NoError(t, s.SetResetToken(ctx, alice.ID, "token-1", now.Add(time.Hour)))
	// повторный запрос заменяет токен
	require.NoError(t, s.SetResetToken(ctx, alice.ID, "token-2", now.Add(time.Hour)))

	_, err := s.ConsumeResetToken(ctx, "token-1", "stale-hash", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	userID, err := s.ConsumeResetToken(ctx, "token-2", "reset-hash", now)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, userID)

	stored, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "reset-hash", stored.PasswordHash)
	assert.Nil(t, stored.ResetToken)

	_, err = s.ConsumeResetToken(ctx, "token-2", "second-hash", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	stored, err = s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "reset-hash", stored.PasswordHash)
}

func testResetTokenUnique(t *testing.T, s Storage) {
	ctx := context.Background()
	now := time.Now().UTC()
	alice := MustCreateUser(t, s, "alice")
	bob := MustCreateUser(t, s, "bob")

	require.NoError(t, s.SetResetToken(ctx, alice.ID, "shared", now.Add(time.Hour)))
	assert.ErrorIs(t, s.SetResetToken(ctx, bob.ID, "shared", now.Add(time.Hour)), repository.ErrDuplicateToken)
	assert.ErrorIs(t, s.SetResetToken(ctx, bob.ID+100, "other", now.Add(time.Hour)), repository.ErrNotFound)
}

func testResetTokenExpiry(t *testing.T, s Storage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	alice := MustCreateUser(t, s, "alice")
	bob := MustCreateUser(t, s, "bob")

	require.NoError(t, s.SetResetToken(ctx, alice.ID, "expired", now.Add(-time.Minute)))
	require.NoError(t, s.SetResetToken(ctx, bob.ID, "fresh", now.Add(time.Hour)))

	_, err := s.ConsumeResetToken(ctx, "expired", "hash", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	cleared, err := s.ClearExpiredResetTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	stored, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
	assert.Equal(t, "hash-alice", stored.PasswordHash)

	stored, err = s.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	assert.Equal(t, "fresh", *stored.ResetToken)
}

func testTasks(t *testing.T, s Storage) {
	ctx := context.Background()
	alice := MustCreateUser(t, s, "alice")
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	late := MustCreateTask(t, s, alice.ID, "late", base.Add(48*time.Hour))
	early := MustCreateTask(t, s, alice.ID, "early", base)
	middle := MustCreateTask(t, s, alice.ID, "middle", base.Add(24*time.Hour))

	tasks, err := s.ListTasksByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []int64{early.ID, middle.ID, late.ID}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	assert.True(t, tasks[0].Date.Equal(base))
	assert.Equal(t, alice.ID, tasks[0].UserID)

	found, err := s.GetTaskByID(ctx, middle.ID)
	require.NoError(t, err)
	assert.Equal(t, "middle", found.Title)

	require.NoError(t, s.DeleteTask(ctx, middle.ID))
	_, err = s.GetTaskByID(ctx, middle.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, middle.ID), repository.ErrNotFound)

	tasks, err = s.ListTasksByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func testTaskOwnerIsolation(t *testing.T, s Storage) {
	ctx := context.Background()
	alice := MustCreateUser(t, s, "alice")
	bob := MustCreateUser(t, s, "bob")

	MustCreateTask(t, s, alice.ID, "alice task", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	tasks, err := s.ListTasksByOwner(ctx, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func testConcurrentConsume(t *testing.T, s Storage) {
	ctx := context.Background()
	now := time.Now().UTC()
	alice := MustCreateUser(t, s, "alice")
	require.NoError(t, s.SetResetToken(ctx, alice.ID, "race", now.Add(time.Hour)))

	const workers = 8
	var wg sync.WaitGroup
	var mtx sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeResetToken(ctx, "race", "hash", now); err == nil {
				mtx.Lock()
				successes++
				mtx.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
