package handlers

import (
	"errors"
	"net/http"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/middleware"
	"taskScheduler/internal/service"

	"go.uber.org/zap"
)

const (
	codeInvalidJSON          = "INVALID_JSON"
	codeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	codeInternal             = "INTERNAL_ERROR"
)

// handleAPIError пишет JSON с кодом бизнес-ошибки, остальное превращает в 500 без подробностей.
func handleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("request_id", middleware.GetRequestID(r.Context())))
	responseWithError(w, http.StatusInternalServerError, codeInternal, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeAuthFailure, service.CodeUnauthenticated:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeDuplicateUsername:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// businessMessage возвращает текст для пользователя и признак того, что ошибка бизнесовая.
func businessMessage(err error) (*service.BusinessError, bool) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		return businessErr, true
	}
	return nil, false
}
