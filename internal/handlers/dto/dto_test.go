package dto_test

import (
	"strings"
	"testing"
	"time"

	"taskScheduler/internal/handlers/dto"
	"taskScheduler/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCreateTask(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		want        dto.CreateTaskRequest
		wantField   string
		wantBadJSON bool
	}{
		{
			name: "valid",
			body: `{"title":"Buy milk","date":"2024-01-01T09:00"}`,
			want: dto.CreateTaskRequest{Title: "Buy milk", Date: "2024-01-01T09:00"},
		},
		{
			name: "unknown fields are ignored",
			body: `{"title":"Buy milk","date":"2024-01-01T09:00","priority":1}`,
			want: dto.CreateTaskRequest{Title: "Buy milk", Date: "2024-01-01T09:00"},
		},
		{name: "malformed", body: `{"title":`, wantBadJSON: true},
		{name: "empty body", body: ``, wantBadJSON: true},
		{name: "missing date", body: `{"title":"Buy milk"}`, wantField: "body"},
		{name: "title is a number", body: `{"title":5,"date":"2024-01-01T09:00"}`, wantField: "title"},
		{name: "array instead of object", body: `[]`, wantField: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dto.DecodeCreateTask(strings.NewReader(tt.body))

			switch {
			case tt.wantBadJSON:
				assert.ErrorIs(t, err, dto.ErrMalformedJSON)
			case tt.wantField != "":
				var schemaErr *dto.SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.Equal(t, tt.wantField, schemaErr.Field)
				assert.NotEmpty(t, schemaErr.Message)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFromTaskList(t *testing.T) {
	tasks := []*task.Task{
		{ID: 1, Title: "Buy milk", Date: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), UserID: 7},
	}

	got := dto.FromTaskList(tasks)
	assert.Equal(t, []dto.TaskResponse{{ID: 1, Title: "Buy milk", Date: "2024-01-01 09:00"}}, got)
	assert.Empty(t, dto.FromTaskList([]*task.Task{}))
}
