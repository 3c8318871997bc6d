package service

import (
	"errors"
	"fmt"
)

const (
	CodeDuplicateUsername = "DUPLICATE_USERNAME"
	CodeAuthFailure       = "AUTH_FAILURE"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource string, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s не найден(а)", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

func NewDuplicateUsername(username string) *BusinessError {
	return NewBusinessError(CodeDuplicateUsername,
		fmt.Sprintf("Пользователь %s уже существует", username),
		ToDetail("username", username),
	)
}

// NewAuthFailure не различает "нет такого пользователя" и "неверный пароль".
func NewAuthFailure() *BusinessError {
	return NewBusinessError(CodeAuthFailure, "Неверное имя пользователя или пароль")
}

func NewUnauthenticated() *BusinessError {
	return NewBusinessError(CodeUnauthenticated, "Требуется вход в систему")
}

func NewForbidden(resource string, id string) *BusinessError {
	return NewBusinessError(CodeForbidden,
		fmt.Sprintf("Нет доступа к %s %s", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

// HasCode проверяет, что err является BusinessError с указанным кодом.
func HasCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}
