package user

import "time"

// MaxUsernameLength считается в символах, как VARCHAR(255) в PostgreSQL.
const MaxUsernameLength = 255

type User struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	ResetToken     *string    `json:"-" db:"reset_token"`
	ResetExpiresAt *time.Time `json:"-" db:"reset_expires_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// HasPendingReset сообщает, ожидает ли пользователь смены пароля по токену.
func (u *User) HasPendingReset(now time.Time) bool {
	if u.ResetToken == nil {
		return false
	}
	return u.ResetExpiresAt == nil || now.Before(*u.ResetExpiresAt)
}
