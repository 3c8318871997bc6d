package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/task"
	"taskScheduler/internal/repository"

	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	repo TaskRepository
	opts options
}

func NewTaskService(repo TaskRepository, opts ...Option) *TaskService {
	return &TaskService{
		repo: repo,
		opts: applyOptions(opts),
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID int64) ([]*task.Task, error) {
	tasks, err := s.repo.ListTasksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID int64, title, rawDate string) (*task.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError("title", "не может быть пустым")
	}
	if utf8.RuneCountInString(title) > task.MaxTitleLength {
		return nil, NewValidationError("title", fmt.Sprintf("не длиннее %d символов", task.MaxTitleLength))
	}

	date, err := task.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		return nil, NewValidationError("date", "ожидается формат ГГГГ-ММ-ДДTЧЧ:ММ")
	}

	t := &task.Task{
		Title:     title,
		Date:      date,
		UserID:    ownerID,
		CreatedAt: s.opts.now(),
	}

	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.Int64("task_id", t.ID),
		zap.Int64("user_id", ownerID))
	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	id := strconv.FormatInt(taskID, 10)

	t, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.Int64("target_id", taskID))
			return NewNotFound("задача", id)
		}
		return fmt.Errorf("получение задачи: %w", err)
	}

	if !t.OwnedBy(ownerID) {
		logger.Warn("Service: Попытка удалить чужую задачу",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", ownerID))
		return NewForbidden("задача", id)
	}

	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("задача", id)
		}
		return fmt.Errorf("удаление задачи: %w", err)
	}

	logger.Info("Service: Задача удалена", zap.Int64("task_id", taskID))
	return nil
}
