package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an analysis task
type Status string

// Possible task status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// SystemOwner is the owner recorded for tasks created by the gateway itself,
// such as those ingested from the ASR output directory.
const SystemOwner = "system"

// Result is the opaque structured value returned by an inference provider.
// The gateway never interprets it beyond passing it to clients.
type Result map[string]any

// Task represents one unit of analysis work. Values handed out by the task
// registry are snapshots made with Clone: the Result map, the payload Event
// and the timestamps are copied, while values nested inside them are shared
// and must be treated as read-only.
type Task struct {
	ID          uuid.UUID  `json:"task_id"`
	Owner       string     `json:"client_id"`
	Payload     Payload    `json:"payload"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      Result     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error,omitempty"`
}

// Clone returns a copy of t that shares no top-level mutable state with it.
func (t Task) Clone() Task {
	out := t
	if t.Result != nil {
		out.Result = maps.Clone(t.Result)
	}
	if t.Payload.Event != nil {
		event := *t.Payload.Event
		out.Payload.Event = &event
	}
	if t.StartedAt != nil {
		started := *t.StartedAt
		out.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

// IsSystem reports whether the task was created by the gateway rather than a client.
func (t Task) IsSystem() bool {
	return t.Owner == SystemOwner
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether a task in status s still occupies the pipeline.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// Validate returns ErrInvalidStatus for unknown status values.
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// CanTransition reports whether the state machine allows moving from one
// status to another:
//
//	pending -> processing -> completed | failed
//	pending -> cancelled
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
