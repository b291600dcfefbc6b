package task

import (
	"context"
	"log/slog"
	"time"
)

// JanitorConfig holds configuration for the janitor
type JanitorConfig struct {
	// Retention is how long finished tasks stay queryable
	Retention time.Duration

	// Interval defines how often to prune. If zero, defaults to one hour
	Interval time.Duration
}

// DefaultJanitorConfig returns a JanitorConfig with reasonable defaults
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Retention: 24 * time.Hour,
		Interval:  time.Hour,
	}
}

// Janitor periodically removes finished tasks older than the retention window
type Janitor struct {
	registry *Registry
	config   JanitorConfig
	logger   *slog.Logger
}

// NewJanitor creates a janitor for registry
func NewJanitor(registry *Registry, config JanitorConfig, logger *slog.Logger) *Janitor {
	defaults := DefaultJanitorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}

	return &Janitor{
		registry: registry,
		config:   config,
		logger:   logger.With("component", "task_janitor"),
	}
}

// Run prunes on every tick until ctx is done. It always returns nil so it
// can run directly under an errgroup.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single prune pass and returns the number of tasks removed
func (j *Janitor) RunOnce() int {
	removed := j.registry.Prune(j.config.Retention)
	if removed > 0 {
		j.logger.Info("pruned finished tasks",
			"count", removed,
			"retention", j.config.Retention)
	}
	return removed
}
