package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/api/middleware"
	"github.com/phrazzld/pulseweave/internal/api/shared"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/platform/logger"
)

// HTTPOwnerPrefix prefixes the owner of tasks submitted over HTTP. Such
// owners never hold a websocket connection, so their tasks are poll-only.
const HTTPOwnerPrefix = "http:"

// TaskService is the part of the task registry the HTTP layer uses
type TaskService interface {
	Create(ctx context.Context, payload domain.Payload, owner string) (domain.Task, error)
	Get(id uuid.UUID) (domain.Task, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Task, error)
	ListRecent(limit int) []domain.Task
}

// CreateTaskRequest is the body of POST /api/tasks
type CreateTaskRequest struct {
	Text  string        `json:"text,omitempty"`
	Event *domain.Event `json:"event,omitempty"`
}

// CreateTaskResponse acknowledges an accepted task
type CreateTaskResponse struct {
	TaskID uuid.UUID     `json:"task_id"`
	Status domain.Status `json:"status"`
}

// TaskHandler serves the task endpoints
type TaskHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With("component", "task_handler"),
	}
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	payload, err := domain.NewPayload(req.Text, req.Event)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	owner := HTTPOwnerPrefix + "anonymous"
	if principal, ok := middleware.GetPrincipal(r); ok {
		owner = HTTPOwnerPrefix + principal.Subject
	}

	t, err := h.tasks.Create(r.Context(), payload, owner)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContext(r.Context()).Debug("task submitted over http", "task_id", t.ID, "owner", owner)
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateTaskResponse{TaskID: t.ID, Status: t.Status})
}

// GetTask handles GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, err := h.tasks.Get(id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// CancelTask handles DELETE /api/tasks/{id}. Only pending tasks can be cancelled.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, err := h.tasks.Cancel(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("task cancelled over http", "task_id", id)
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// ListTasks handles GET /api/tasks?limit=N, newest first
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := getLimit(r, 50)
	if err == nil {
		err = shared.ValidateRequest(&q)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "limit must be between 1 and 1000", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{"tasks": h.tasks.ListRecent(q.Limit)})
}
