// Package stats aggregates read-only counters from the task registry, the
// realtime hub and the ASR watcher into a single snapshot.
package stats

import (
	"github.com/phrazzld/pulseweave/internal/asr"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/task"
)

// TaskCounter is satisfied by *task.Registry
type TaskCounter interface {
	Counts() task.Counts
}

// ConnectionCounter is satisfied by *realtime.Hub
type ConnectionCounter interface {
	ActiveClients() int
	TotalConnections() uint64
	Dropped() uint64
}

// WatcherCounter is satisfied by *asr.Watcher
type WatcherCounter interface {
	Stats() asr.Stats
}

// Snapshot is a point-in-time view of the gateway. Totals are monotonic;
// the per-status counts describe the tasks currently held.
type Snapshot struct {
	ActiveConnections int    `json:"active_connections"`
	TotalConnections  uint64 `json:"total_connections"`
	DroppedDeliveries uint64 `json:"dropped_deliveries"`

	TotalTasks     uint64 `json:"total_tasks"`
	ActiveTasks    int    `json:"active_tasks"`
	CompletedTasks uint64 `json:"completed_tasks"`
	FailedTasks    uint64 `json:"failed_tasks"`
	CancelledTasks uint64 `json:"cancelled_tasks"`
	QueueSize      int    `json:"queue_size"`

	ByStatus map[domain.Status]int `json:"tasks_by_status"`

	ASR *asr.Stats `json:"asr,omitempty"`
}

// Aggregator builds snapshots. It never mutates its sources; each source
// guards its own counters, so a snapshot never blocks writers for long.
type Aggregator struct {
	tasks   TaskCounter
	conns   ConnectionCounter
	watcher WatcherCounter
}

// NewAggregator creates an aggregator. conns and watcher may be nil.
func NewAggregator(tasks TaskCounter, conns ConnectionCounter, watcher WatcherCounter) *Aggregator {
	return &Aggregator{tasks: tasks, conns: conns, watcher: watcher}
}

// Snapshot collects the current counters
func (a *Aggregator) Snapshot() Snapshot {
	counts := a.tasks.Counts()

	snap := Snapshot{
		TotalTasks:     counts.TotalCreated,
		ActiveTasks:    counts.Active(),
		CompletedTasks: counts.TotalCompleted,
		FailedTasks:    counts.TotalFailed,
		CancelledTasks: counts.TotalCancelled,
		QueueSize:      counts.Pending,
		ByStatus: map[domain.Status]int{
			domain.StatusPending:    counts.Pending,
			domain.StatusProcessing: counts.Processing,
			domain.StatusCompleted:  counts.Completed,
			domain.StatusFailed:     counts.Failed,
			domain.StatusCancelled:  counts.Cancelled,
		},
	}

	if a.conns != nil {
		snap.ActiveConnections = a.conns.ActiveClients()
		snap.TotalConnections = a.conns.TotalConnections()
		snap.DroppedDeliveries = a.conns.Dropped()
	}

	if a.watcher != nil {
		ws := a.watcher.Stats()
		snap.ASR = &ws
	}

	return snap
}
