package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskEvent(t *testing.T) {
	t.Parallel()

	task := domain.Task{
		ID:         uuid.New(),
		Owner:      "client-1",
		Status:     domain.StatusCompleted,
		Result:     domain.Result{"event_type": "meeting"},
		RetryCount: 1,
	}

	event := NewTaskEvent(task)

	require.NotNil(t, event)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, task.ID, event.TaskID)
	assert.Equal(t, "client-1", event.Owner)
	assert.Equal(t, domain.StatusCompleted, event.Status)
	assert.Equal(t, "meeting", event.Result["event_type"])
	assert.Equal(t, 1, event.RetryCount)
	assert.WithinDuration(t, time.Now(), event.At, 2*time.Second)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	mu sync.Mutex
	// Events received by this handler, in order
	Events []*TaskEvent
	// Error to return from HandleEvent
	HandlerError error
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, event)
	return h.HandlerError
}

func (h *MockEventHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Events)
}

func TestEventHandlerFunc(t *testing.T) {
	t.Parallel()

	var got *TaskEvent
	expectedErr := errors.New("handler error")
	handler := EventHandlerFunc(func(ctx context.Context, event *TaskEvent) error {
		got = event
		return expectedErr
	})

	event := NewTaskEvent(domain.Task{ID: uuid.New(), Status: domain.StatusPending})
	err := handler.HandleEvent(context.Background(), event)

	assert.ErrorIs(t, err, expectedErr)
	assert.Same(t, event, got)
}
