package tasks

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeQueryList  TaskType = "query_list"
	TaskTypeQueryWord  TaskType = "query_word"
	TaskTypeQueryQuote TaskType = "query_quote"
)

type Task struct {
	ID        string
	Type      TaskType
	Provider  string
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetProvider() string {
	return t.Provider
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, provider string) Task {
	return Task{
		ID:       uuid.NewString(),
		Type:     taskType,
		Provider: provider,
	}
}
