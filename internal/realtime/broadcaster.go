package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/events"
)

// Broadcaster pushes task transitions to the client that owns the task.
// It is registered as an events.EventHandler and runs inside the registry's
// transition, so it only encodes and hands off to the hub without blocking.
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger

	storedOnly atomic.Uint64
}

// NewBroadcaster creates a broadcaster delivering through hub
func NewBroadcaster(hub *Hub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		logger: logger.With("component", "broadcaster"),
	}
}

// HandleEvent implements events.EventHandler
func (b *Broadcaster) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event.Owner == domain.SystemOwner {
		// no live owner; results stay queryable through the registry
		b.storedOnly.Add(1)
		return nil
	}

	data, err := json.Marshal(messageFor(event))
	if err != nil {
		return fmt.Errorf("failed to encode notification for task %s: %w", event.TaskID, err)
	}

	if !b.hub.Deliver(event.Owner, data) {
		b.logger.Debug("notification not delivered",
			"task_id", event.TaskID,
			"client_id", event.Owner,
			"status", event.Status)
	}
	return nil
}

// StoredOnly returns the number of events for system-owned tasks
func (b *Broadcaster) StoredOnly() uint64 {
	return b.storedOnly.Load()
}

func messageFor(event *events.TaskEvent) any {
	if event.Status == domain.StatusPending {
		return TaskSubmitted{
			Envelope: Envelope{Type: TypeTaskSubmitted, Timestamp: unixSeconds(event.At)},
			TaskID:   event.TaskID.String(),
			Status:   event.Status,
		}
	}

	return TaskStatusUpdate{
		Envelope:   Envelope{Type: TypeTaskStatusUpdate, Timestamp: unixSeconds(event.At)},
		TaskID:     event.TaskID.String(),
		Status:     event.Status,
		Result:     event.Result,
		Error:      event.Error,
		RetryCount: event.RetryCount,
	}
}
