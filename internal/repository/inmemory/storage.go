package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/task"
	"taskScheduler/internal/models/user"
	repo "taskScheduler/internal/repository"
)

// Storage хранит пользователей и задачи в памяти процесса. Наружу отдаются только копии.
type Storage struct {
	mtx        *sync.RWMutex
	users      map[int64]*user.User
	tasks      map[int64]*task.Task
	nextUserID int64
	nextTaskID int64
}

func New() *Storage {
	return &Storage{
		mtx:   &sync.RWMutex{},
		users: make(map[int64]*user.User),
		tasks: make(map[int64]*task.Task),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) CreateUser(ctx context.Context, userToCreate *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, existing := range s.users {
		if existing.Username == userToCreate.Username {
			return repo.ErrDuplicateUsername
		}
	}

	s.nextUserID++
	userToCreate.ID = s.nextUserID
	if userToCreate.CreatedAt.IsZero() {
		userToCreate.CreatedAt = time.Now()
	}
	userToCreate.ResetToken = nil
	userToCreate.ResetExpiresAt = nil

	s.users[userToCreate.ID] = copyUser(userToCreate)
	return nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *Storage) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}

	for otherID, other := range s.users {
		if otherID != id && other.ResetToken != nil && *other.ResetToken == token {
			return repo.ErrDuplicateToken
		}
	}

	u.ResetToken = &token
	u.ResetExpiresAt = &expiresAt
	return nil
}

func (s *Storage) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, u := range s.users {
		if u.ResetToken == nil || *u.ResetToken != token {
			continue
		}
		if !u.HasPendingReset(now) {
			return 0, repo.ErrNotFound
		}
		u.PasswordHash = passwordHash
		u.ResetToken = nil
		u.ResetExpiresAt = nil
		return u.ID, nil
	}
	return 0, repo.ErrNotFound
}

func (s *Storage) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	cleared := 0
	for _, u := range s.users {
		if u.ResetToken != nil && !u.HasPendingReset(now) {
			u.ResetToken = nil
			u.ResetExpiresAt = nil
			cleared++
		}
	}
	return cleared, nil
}

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[taskToCreate.UserID]; !ok {
		return repo.ErrNotFound
	}

	s.nextTaskID++
	taskToCreate.ID = s.nextTaskID
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	stored := *taskToCreate
	s.tasks[stored.ID] = &stored
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	found := *t
	return &found, nil
}

// ListTasksByOwner возвращает задачи владельца по возрастанию даты.
func (s *Storage) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if t.UserID != ownerID {
			continue
		}
		found := *t
		res = append(res, &found)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Date.Equal(res[j].Date) {
			return res[i].ID < res[j].ID
		}
		return res[i].Date.Before(res[j].Date)
	})
	return res, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func copyUser(u *user.User) *user.User {
	c := *u
	if u.ResetToken != nil {
		token := *u.ResetToken
		c.ResetToken = &token
	}
	if u.ResetExpiresAt != nil {
		expiresAt := *u.ResetExpiresAt
		c.ResetExpiresAt = &expiresAt
	}
	return &c
}
