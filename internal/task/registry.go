package task

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/events"
	"github.com/phrazzld/pulseweave/internal/ring"
)

// RegistryConfig holds configuration for the task registry
type RegistryConfig struct {
	// HistorySize bounds the recent-task view returned by ListRecent
	HistorySize int
}

// DefaultRegistryConfig returns a RegistryConfig with reasonable defaults
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{HistorySize: 1000}
}

// Counts is a read-only view of the registry used for statistics
type Counts struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int

	// Totals are monotonic and survive pruning
	TotalCreated   uint64
	TotalCompleted uint64
	TotalFailed    uint64
	TotalCancelled uint64
}

// Active returns the number of tasks still in the pipeline
func (c Counts) Active() int {
	return c.Pending + c.Processing
}

// Registry owns every task known to the process and enforces the status
// state machine. Every transition, creation included, publishes a TaskEvent
// while the registry lock is still held, so subscribers observe events in
// the exact order the transitions were applied. Handlers must therefore
// never call back into the registry.
type Registry struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]*domain.Task
	seqs     map[uuid.UUID]uint64
	byStatus map[domain.Status]int
	recent   *ring.Buffer[uuid.UUID]
	closed   bool

	totalCreated   uint64
	totalCompleted uint64
	totalFailed    uint64
	totalCancelled uint64

	queue   *Queue
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewRegistry creates a registry feeding new task ids into queue.
// emitter may be nil when nobody listens for task events.
func NewRegistry(queue *Queue, emitter events.EventEmitter, config RegistryConfig, logger *slog.Logger) *Registry {
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultRegistryConfig().HistorySize
	}

	return &Registry{
		tasks:    make(map[uuid.UUID]*domain.Task),
		seqs:     make(map[uuid.UUID]uint64),
		byStatus: make(map[domain.Status]int),
		recent:   ring.New[uuid.UUID](config.HistorySize),
		queue:    queue,
		emitter:  emitter,
		logger:   logger.With("component", "task_registry"),
	}
}

// Create registers a new pending task and enqueues it for processing.
// The payload must come from domain.NewPayload; owner is the submitting
// client id or domain.SystemOwner.
func (r *Registry) Create(ctx context.Context, payload domain.Payload, owner string) (domain.Task, error) {
	if err := payload.Validate(); err != nil {
		return domain.Task{}, err
	}
	if owner == "" {
		return domain.Task{}, fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.Task{}, ErrRegistryClosed
	}

	task := &domain.Task{
		ID:        uuid.New(),
		Owner:     owner,
		Payload:   payload,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.queue.Enqueue(task.ID); err != nil {
		return domain.Task{}, fmt.Errorf("failed to enqueue task: %w", err)
	}

	r.totalCreated++
	r.tasks[task.ID] = task
	r.seqs[task.ID] = r.totalCreated
	r.byStatus[domain.StatusPending]++
	r.recent.Push(task.ID)

	r.logger.Debug("task created", "task_id", task.ID, "owner", owner, "payload_kind", payload.Kind)
	return r.publish(ctx, task), nil
}

// Claim moves a pending task to processing. Exactly one caller can claim a
// given task; every other caller gets ErrAlreadyClaimed.
func (r *Registry) Claim(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	if task.Status != domain.StatusPending {
		return task.Clone(), fmt.Errorf("%w: task %s is %s", ErrAlreadyClaimed, id, task.Status)
	}

	now := time.Now().UTC()
	r.move(task, domain.StatusProcessing)
	task.StartedAt = &now

	return r.publish(ctx, task), nil
}

// Complete records a successful result for a processing task
func (r *Registry) Complete(ctx context.Context, id uuid.UUID, result domain.Result) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.lookupForTransition(id, domain.StatusCompleted)
	if err != nil {
		return domain.Task{}, err
	}

	now := time.Now().UTC()
	r.move(task, domain.StatusCompleted)
	task.Result = maps.Clone(result)
	task.CompletedAt = &now
	r.totalCompleted++

	return r.publish(ctx, task), nil
}

// Fail records a terminal error for a processing task
func (r *Registry) Fail(ctx context.Context, id uuid.UUID, message string) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.lookupForTransition(id, domain.StatusFailed)
	if err != nil {
		return domain.Task{}, err
	}

	now := time.Now().UTC()
	r.move(task, domain.StatusFailed)
	task.Error = message
	task.CompletedAt = &now
	r.totalFailed++

	return r.publish(ctx, task), nil
}

// Cancel withdraws a task that no worker has claimed yet.
// The id stays in the queue; the worker that dequeues it skips it.
func (r *Registry) Cancel(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	if task.Status != domain.StatusPending {
		return task.Clone(), fmt.Errorf("%w: task %s is %s", ErrTooLate, id, task.Status)
	}

	now := time.Now().UTC()
	r.move(task, domain.StatusCancelled)
	task.CompletedAt = &now
	r.totalCancelled++

	return r.publish(ctx, task), nil
}

// RecordRetry notes a failed attempt on a processing task.
// The status does not change and no event is published.
func (r *Registry) RecordRetry(id uuid.UUID, attemptErr string) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	if task.Status != domain.StatusProcessing {
		return task.Clone(), fmt.Errorf("%w: cannot record retry for %s task", ErrInvalidTransition, task.Status)
	}

	task.RetryCount++
	task.LastError = attemptErr
	return task.Clone(), nil
}

// Get returns a snapshot of the task with the given id
func (r *Registry) Get(id uuid.UUID) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	return task.Clone(), nil
}

// ListByOwner returns snapshots of every task submitted by owner, oldest first
func (r *Registry) ListByOwner(owner string) []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Task, 0)
	for _, task := range r.tasks {
		if task.Owner == owner {
			out = append(out, task.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return r.seqs[out[i].ID] < r.seqs[out[j].ID]
	})
	return out
}

// ListRecent returns up to limit of the most recently created tasks, newest first.
// Tasks pruned since creation are left out.
func (r *Registry) ListRecent(limit int) []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.recent.Newest(limit)
	out := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		if task, ok := r.tasks[id]; ok {
			out = append(out, task.Clone())
		}
	}
	return out
}

// Counts returns current per-status counts and lifetime totals
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Counts{
		Pending:        r.byStatus[domain.StatusPending],
		Processing:     r.byStatus[domain.StatusProcessing],
		Completed:      r.byStatus[domain.StatusCompleted],
		Failed:         r.byStatus[domain.StatusFailed],
		Cancelled:      r.byStatus[domain.StatusCancelled],
		TotalCreated:   r.totalCreated,
		TotalCompleted: r.totalCompleted,
		TotalFailed:    r.totalFailed,
		TotalCancelled: r.totalCancelled,
	}
}

// Prune removes terminal tasks that finished more than olderThan ago.
// Pending and processing tasks are never removed. Returns the number removed.
func (r *Registry) Prune(olderThan time.Duration) int {
	cutoff := time.Now().UTC().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, task := range r.tasks {
		if !task.Status.IsTerminal() || task.CompletedAt == nil {
			continue
		}
		if task.CompletedAt.Before(cutoff) {
			delete(r.tasks, id)
			delete(r.seqs, id)
			r.byStatus[task.Status]--
			removed++
		}
	}
	return removed
}

// Close stops accepting new tasks and closes the queue.
// Tasks already queued are still handed to workers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.queue.Close()
}

// lookupForTransition must be called with r.mu held
func (r *Registry) lookupForTransition(id uuid.UUID, to domain.Status) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if !domain.CanTransition(task.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
	}
	return task, nil
}

// move must be called with r.mu held
func (r *Registry) move(task *domain.Task, to domain.Status) {
	r.byStatus[task.Status]--
	task.Status = to
	r.byStatus[to]++
}

// publish must be called with r.mu held. It returns the snapshot that was published.
func (r *Registry) publish(ctx context.Context, task *domain.Task) domain.Task {
	snapshot := task.Clone()
	if r.emitter != nil {
		// handler failures are logged by the emitter and never undo a transition
		_ = r.emitter.EmitEvent(ctx, events.NewTaskEvent(snapshot))
	}
	return snapshot
}
