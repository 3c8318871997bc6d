package handlers

import (
	"errors"
	"net/http"
	"time"

	"taskScheduler/internal/handlers/dto"
	"taskScheduler/internal/logger"
	"taskScheduler/internal/middleware"
	"taskScheduler/internal/service"

	"go.uber.org/zap"
)

// APIHandler обслуживает JSON API задач. Владелец всегда берётся из контекста сессии.
type APIHandler struct {
	tasks TaskService
}

func NewAPIHandler(tasks TaskService) *APIHandler {
	return &APIHandler{tasks: tasks}
}

func (h *APIHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		handleAPIError(w, r, service.NewUnauthenticated())
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), ownerID)
	if err != nil {
		handleAPIError(w, r, err)
		return
	}

	logger.Debug("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *APIHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		handleAPIError(w, r, service.NewUnauthenticated())
		return
	}

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, codeUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	request, err := dto.DecodeCreateTask(r.Body)
	if err != nil {
		var schemaErr *dto.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			handleAPIError(w, r, service.NewValidationError(schemaErr.Field, schemaErr.Message))
		case errors.Is(err, dto.ErrMalformedJSON):
			logger.Warn("HTTP: Ошибка чтения JSON", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, codeInvalidJSON, "неверное тело запроса")
		default:
			handleAPIError(w, r, err)
		}
		return
	}

	created, err := h.tasks.CreateTask(r.Context(), ownerID, request.Title, request.Date)
	if err != nil {
		handleAPIError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.CreateTaskResponse{Message: "Задача создана", ID: created.ID})
}

func (h *APIHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		handleAPIError(w, r, service.NewUnauthenticated())
		return
	}

	id, ok := taskIDParam(r)
	if !ok {
		handleAPIError(w, r, service.NewValidationError("id", "ожидается положительное целое число"))
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), ownerID, id); err != nil {
		handleAPIError(w, r, err)
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("message", "Задача удалена"))
}

// HealthCheck проверяет доступность хранилища.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.tasks.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("time", time.Now().UTC().Format(time.RFC3339)),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("time", time.Now().UTC().Format(time.RFC3339)),
	)
}
