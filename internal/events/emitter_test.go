package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	// Create a minimal logger that discards output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	newEvent := func(status domain.Status) *TaskEvent {
		return NewTaskEvent(domain.Task{ID: uuid.New(), Owner: "c1", Status: status})
	}

	t.Run("emit event with no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)

		// Should not error even with no handlers
		assert.NoError(t, emitter.EmitEvent(context.Background(), newEvent(domain.StatusPending)))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := newEvent(domain.StatusPending)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.Count())
		assert.Equal(t, 1, handler2.Count())
		assert.Same(t, event, handler1.Events[0])
		assert.Same(t, event, handler2.Events[0])
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)

		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), newEvent(domain.StatusFailed))
		assert.EqualError(t, err, "handler error")

		// Both handlers should still have received the event
		assert.Equal(t, 1, successHandler.Count())
		assert.Equal(t, 1, failingHandler.Count())
	})

	t.Run("events arrive in emission order", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		handler := &MockEventHandler{}
		emitter.RegisterHandler(handler)

		statuses := []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted}
		for _, s := range statuses {
			assert.NoError(t, emitter.EmitEvent(context.Background(), newEvent(s)))
		}

		for i, s := range statuses {
			assert.Equal(t, s, handler.Events[i].Status)
		}
	})
}
