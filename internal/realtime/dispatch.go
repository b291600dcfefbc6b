package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/redact"
	"github.com/phrazzld/pulseweave/internal/stats"
	"github.com/phrazzld/pulseweave/internal/task"
)

// StatsSource is satisfied by *stats.Aggregator
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Dispatcher answers client protocol messages
type Dispatcher struct {
	registry *task.Registry
	stats    StatsSource
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over registry
func NewDispatcher(registry *task.Registry, snapshots StatsSource, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		stats:    snapshots,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Handle processes one raw message from clientID and returns the direct
// reply. It returns nil when the answer reaches the client as a task
// notification instead, as for submit_task and cancel_task.
func (d *Dispatcher) Handle(ctx context.Context, clientID string, raw []byte) any {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return NewError("invalid JSON message")
	}

	switch msg.Type {
	case TypeSubmitTask:
		return d.submit(ctx, clientID, msg.Data)

	case TypeGetTaskStatus:
		id, err := parseTaskID(msg.TaskID)
		if err != nil {
			return NewError(err.Error())
		}
		t, err := d.registry.Get(id)
		if err != nil {
			return NewError(errorMessage(err))
		}
		return NewTaskStatusUpdate(t)

	case TypeGetMyTasks:
		return MyTasks{Envelope: envelope(TypeMyTasks), Tasks: d.registry.ListByOwner(clientID)}

	case TypeGetStats:
		return Stats{Envelope: envelope(TypeStats), Data: d.stats.Snapshot()}

	case TypePing:
		return Pong{Envelope: envelope(TypePong)}

	case TypeCancelTask:
		return d.cancel(ctx, clientID, msg.TaskID)

	case "":
		return NewError("message type is required")

	default:
		return NewError(fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (d *Dispatcher) submit(ctx context.Context, clientID string, raw json.RawMessage) any {
	var data SubmitData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return NewError("invalid submit_task data")
		}
	}

	payload, err := domain.NewPayload(data.Text, data.Event)
	if err != nil {
		return NewError(errorMessage(err))
	}

	t, err := d.registry.Create(ctx, payload, clientID)
	if err != nil {
		d.logger.Warn("task submission rejected", "client_id", clientID, "error", err)
		return NewError(errorMessage(err))
	}

	d.logger.Debug("task submitted", "client_id", clientID, "task_id", t.ID)
	return nil
}

// cancel only lets a client withdraw its own tasks; other ids look unknown
func (d *Dispatcher) cancel(ctx context.Context, clientID, rawID string) any {
	id, err := parseTaskID(rawID)
	if err != nil {
		return NewError(err.Error())
	}

	t, err := d.registry.Get(id)
	if err != nil || t.Owner != clientID {
		return NewError(errorMessage(task.ErrTaskNotFound))
	}

	if _, err := d.registry.Cancel(ctx, id); err != nil {
		d.logger.Debug("cancel rejected", "client_id", clientID, "task_id", id, "error", err)
		return NewError(errorMessage(err))
	}
	return nil
}

func parseTaskID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.New("task_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid task_id")
	}
	return id, nil
}

// errorMessage maps an error to a message that is safe to send to a client
func errorMessage(err error) string {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "task not found"
	case errors.Is(err, task.ErrTooLate):
		return "task is already being processed and can no longer be cancelled"
	case errors.Is(err, task.ErrStateConflict):
		return "task is not in a state that allows this operation"
	case errors.Is(err, domain.ErrValidation):
		return redact.Error(err)
	case errors.Is(err, task.ErrRegistryClosed):
		return "server is shutting down"
	default:
		return "failed to process message"
	}
}
