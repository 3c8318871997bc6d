package dto

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskScheduler/internal/models/task"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20

//go:embed create_task.schema.json
var createTaskSchemaJSON string

var createTaskSchema = jsonschema.MustCompileString("create_task.schema.json", createTaskSchemaJSON)

var ErrMalformedJSON = errors.New("тело запроса не является корректным JSON")

// SchemaError описывает первое найденное нарушение схемы.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type CreateTaskRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type TaskResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

type CreateTaskResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// DecodeCreateTask сначала проверяет тело по JSON Schema, затем раскладывает его в структуру.
func DecodeCreateTask(body io.Reader) (CreateTaskRequest, error) {
	var request CreateTaskRequest

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return request, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return request, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if err := createTaskSchema.Validate(doc); err != nil {
		return request, toSchemaError(err)
	}

	if err := json.Unmarshal(raw, &request); err != nil {
		return request, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return request, nil
}

func toSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Field: "body", Message: err.Error()}
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		field = "body"
	}
	return &SchemaError{Field: field, Message: leaf.Message}
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:    t.ID,
		Title: t.Title,
		Date:  t.FormattedDate(),
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
