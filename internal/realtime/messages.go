package realtime

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/stats"
)

// Client to server message types
const (
	TypeSubmitTask    = "submit_task"
	TypeGetTaskStatus = "get_task_status"
	TypeGetMyTasks    = "get_my_tasks"
	TypeGetStats      = "get_stats"
	TypePing          = "ping"
	TypeCancelTask    = "cancel_task"
)

// Server to client message types
const (
	TypeConnectionEstablished = "connection_established"
	TypeTaskSubmitted         = "task_submitted"
	TypeTaskStatusUpdate      = "task_status_update"
	TypeMyTasks               = "my_tasks"
	TypeStats                 = "stats"
	TypePong                  = "pong"
	TypeError                 = "error"
)

// Inbound is any message received from a client. Only the fields relevant
// to Type are set.
type Inbound struct {
	Type   string          `json:"type"`
	TaskID string          `json:"task_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SubmitData is the data of a submit_task message
type SubmitData struct {
	Text  string        `json:"text,omitempty"`
	Event *domain.Event `json:"event,omitempty"`
}

// Envelope carries the fields every server message has
type Envelope struct {
	Type string `json:"type"`

	// Timestamp is in unix seconds with sub-second precision
	Timestamp float64 `json:"timestamp"`
}

func envelope(msgType string) Envelope {
	return Envelope{Type: msgType, Timestamp: unixSeconds(time.Now())}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ConnectionEstablished greets a new client with its id
type ConnectionEstablished struct {
	Envelope
	ClientID string `json:"client_id"`
}

// TaskSubmitted acknowledges a new task
type TaskSubmitted struct {
	Envelope
	TaskID string        `json:"task_id"`
	Status domain.Status `json:"status"`
}

// TaskStatusUpdate reports the status of a task
type TaskStatusUpdate struct {
	Envelope
	TaskID     string        `json:"task_id"`
	Status     domain.Status `json:"status"`
	Result     domain.Result `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	RetryCount int           `json:"retry_count,omitempty"`
}

// MyTasks lists the tasks a client submitted
type MyTasks struct {
	Envelope
	Tasks []domain.Task `json:"tasks"`
}

// Stats carries a gateway stats snapshot
type Stats struct {
	Envelope
	Data stats.Snapshot `json:"data"`
}

// Pong answers a ping
type Pong struct {
	Envelope
}

// Error reports a problem with a client message. The connection stays open.
type Error struct {
	Envelope
	Message string `json:"message"`
}

// NewConnectionEstablished builds the greeting for clientID
func NewConnectionEstablished(clientID string) ConnectionEstablished {
	return ConnectionEstablished{Envelope: envelope(TypeConnectionEstablished), ClientID: clientID}
}

// NewTaskStatusUpdate builds a status update from a task snapshot
func NewTaskStatusUpdate(task domain.Task) TaskStatusUpdate {
	return TaskStatusUpdate{
		Envelope:   envelope(TypeTaskStatusUpdate),
		TaskID:     task.ID.String(),
		Status:     task.Status,
		Result:     task.Result,
		Error:      task.Error,
		RetryCount: task.RetryCount,
	}
}

// NewError builds an error message
func NewError(message string) Error {
	return Error{Envelope: envelope(TypeError), Message: message}
}
