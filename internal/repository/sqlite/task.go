package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/task"
	repo "taskScheduler/internal/repository"

	"go.uber.org/zap"
)

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("create_task", start)

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	query := `INSERT INTO tasks (title, date, user_id, created_at)
				VALUES (?, ?, ?, ?)
				RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		taskToCreate.Title,
		toUnix(taskToCreate.Date),
		taskToCreate.UserID,
		toUnix(taskToCreate.CreatedAt),
	).Scan(&taskToCreate.ID)
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Int64("user_id", taskToCreate.UserID))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("get_task", start)

	query := `SELECT id, title, date, user_id, created_at
				FROM tasks
				WHERE id = ?`

	found, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return found, nil
}

func (s *Storage) ListTasksByOwner(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("list_tasks", start)

	query := `SELECT id, title, date, user_id, created_at
				FROM tasks
				WHERE user_id = ?
				ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Int64("user_id", ownerID))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		found, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, found)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	start := time.Now()
	defer warnIfSlow("delete_task", start)

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.Int64("task_id", id))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		found     task.Task
		date      int64
		createdAt int64
	)
	if err := row.Scan(&found.ID, &found.Title, &date, &found.UserID, &createdAt); err != nil {
		return nil, err
	}
	found.Date = fromUnix(date)
	found.CreatedAt = fromUnix(createdAt)
	return &found, nil
}
