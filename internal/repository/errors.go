package repository

import "errors"

var (
	ErrNotFound          = errors.New("запись не найдена")
	ErrDuplicateUsername = errors.New("имя пользователя уже занято")
	ErrDuplicateToken    = errors.New("токен сброса уже используется")
)
