package task

import (
	"time"
)

// InputLayout: формат даты из формы и JSON-запроса. OutputLayout: формат отдачи клиенту.
const (
	InputLayout  = "2006-01-02T15:04"
	OutputLayout = "2006-01-02 15:04"
)

// MaxTitleLength считается в символах, не в байтах.
const MaxTitleLength = 100

type Task struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Date      time.Time `json:"date" db:"date"`
	UserID    int64     `json:"-" db:"user_id"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// ParseDate разбирает дату без учёта часового пояса.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(InputLayout, raw)
}

func (t *Task) FormattedDate() string {
	return t.Date.Format(OutputLayout)
}

func (t *Task) OwnedBy(userID int64) bool {
	return t.UserID == userID
}
