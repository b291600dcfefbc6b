package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/events"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recordingHandler keeps every event it receives, in order
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.TaskEvent
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) statusesFor(id uuid.UUID) []domain.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []domain.Status{}
	for _, e := range h.events {
		if e.TaskID == id {
			out = append(out, e.Status)
		}
	}
	return out
}

type testEnv struct {
	queue    *Queue
	registry *Registry
	events   *recordingHandler
}

func newTestEnv(t *testing.T, historySize int) *testEnv {
	t.Helper()

	logger := setupTestLogger()
	emitter := events.NewInMemoryEventEmitter(logger)
	handler := &recordingHandler{}
	emitter.RegisterHandler(handler)

	queue := NewQueue(logger)
	registry := NewRegistry(queue, emitter, RegistryConfig{HistorySize: historySize}, logger)
	return &testEnv{queue: queue, registry: registry, events: handler}
}

func textPayload(t *testing.T, text string) domain.Payload {
	t.Helper()
	p, err := domain.NewPayload(text, nil)
	require.NoError(t, err)
	return p
}

func waitForStatus(t *testing.T, r *Registry, id uuid.UUID, want domain.Status) domain.Task {
	t.Helper()

	var task domain.Task
	require.Eventually(t, func() bool {
		var err error
		task, err = r.Get(id)
		return err == nil && task.Status == want
	}, 5*time.Second, 5*time.Millisecond, "task %s never reached %s", id, want)
	return task
}
