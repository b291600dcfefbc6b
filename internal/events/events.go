package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
)

// TaskEvent describes a single task lifecycle transition.
// It is built while the transition is still being applied, so a stream of
// TaskEvents for one task is always in transition order.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that changed
	TaskID uuid.UUID `json:"task_id"`

	// Owner is the client id that submitted the task, or domain.SystemOwner
	Owner string `json:"owner"`

	// Status is the status the task moved into
	Status domain.Status `json:"status"`

	// Result is set for completed tasks
	Result domain.Result `json:"result,omitempty"`

	// Error is set for failed tasks
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`

	// At is when the transition happened
	At time.Time `json:"at"`
}

// NewTaskEvent snapshots the given task into an event.
func NewTaskEvent(task domain.Task) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		TaskID:     task.ID,
		Owner:      task.Owner,
		Status:     task.Status,
		Result:     task.Result,
		Error:      task.Error,
		RetryCount: task.RetryCount,
		At:         time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
// Handlers are invoked synchronously by the emitter and must not block.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a plain function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
