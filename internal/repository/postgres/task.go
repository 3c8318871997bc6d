package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/task"
	repo "taskScheduler/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("create_task", start)

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}

	query := `INSERT INTO tasks (title, date, user_id, created_at)
				VALUES ($1, $2, $3, $4)
				RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.Title,
		taskToCreate.Date,
		taskToCreate.UserID,
		taskToCreate.CreatedAt,
	).Scan(&taskToCreate.ID)
	if err != nil {
		if violates(err, codeForeignKeyViolation, "") {
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
				WHERE id = $1`

	found, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
				WHERE user_id = $1
				ORDER BY date, id`

	rows, err := s.pool.Query(ctx, query, ownerID)
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

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.Int64("task_id", id))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	found := &task.Task{}
	if err := row.Scan(&found.ID, &found.Title, &found.Date, &found.UserID, &found.CreatedAt); err != nil {
		return nil, err
	}
	found.Date = found.Date.UTC()
	found.CreatedAt = found.CreatedAt.UTC()
	return found, nil
}
