package task

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task.
type Status string

// Task statuses
const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// Terminal returns whether a Task with this Status is done.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// A Task is a unit of work that is processed by a Runner.
type Task struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// New returns a pending Task of the given type.
func New(typ string, payload map[string]any) Task {
	return Task{
		ID:        uuid.New(),
		Type:      typ,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: time.Now(),
	}
}
