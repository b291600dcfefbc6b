package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/inference"
	"github.com/phrazzld/pulseweave/internal/redact"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/time/rate"
)

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int

	// MaxRetries is the number of additional attempts after the first failure
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles on every retry
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps a single backoff delay
	RetryMaxDelay time.Duration

	// CallTimeout bounds every provider call
	CallTimeout time.Duration

	// RatePerSecond limits provider calls across all workers. Zero disables limiting.
	RatePerSecond float64

	// RateBurst is the limiter bucket size
	RateBurst int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:    3,
		MaxRetries:     2,
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  4 * time.Second,
		CallTimeout:    30 * time.Second,
		RateBurst:      1,
	}
}

// WorkerPool manages a pool of worker goroutines that take task ids from the
// queue, claim them in the registry and run them through the inference
// provider. No error ever leaves a worker: every claimed task ends completed
// or failed.
type WorkerPool struct {
	registry *Registry
	queue    QueueReader
	provider inference.Provider
	config   WorkerPoolConfig
	limiter  *rate.Limiter

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool

	logger *slog.Logger
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	registry *Registry,
	queue QueueReader,
	provider inference.Provider,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	logger = logger.With("component", "worker_pool")
	defaults := DefaultWorkerPoolConfig()

	// Apply defaults for invalid config values
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if config.RetryMaxDelay < config.RetryBaseDelay {
		config.RetryMaxDelay = config.RetryBaseDelay
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaults.CallTimeout
	}

	var limiter *rate.Limiter
	if config.RatePerSecond > 0 {
		if config.RateBurst <= 0 {
			config.RateBurst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RateBurst)
	}

	// Create a cancelable context for shutdown coordination
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		registry: registry,
		queue:    queue,
		provider: provider,
		config:   config,
		limiter:  limiter,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Start launches the worker goroutines. Calling Start twice has no effect.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool",
		"worker_count", p.config.WorkerCount,
		"provider", p.provider.Name(),
		"max_retries", p.config.MaxRetries,
		"call_timeout", p.config.CallTimeout)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop signals all workers to stop and waits for them to finish.
// A task interrupted mid-flight is marked failed; queued tasks stay pending.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker processes task ids from the queue until the pool stops
func (p *WorkerPool) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", workerID)

	for {
		id, err := p.queue.Dequeue(p.ctx)
		if err != nil {
			// Context cancelled or queue closed and drained
			p.logger.Debug("stopping worker", "worker_id", workerID, "reason", err)
			return
		}
		if p.ctx.Err() != nil {
			// the queue hands out leftovers after Stop; they stay pending
			p.logger.Debug("stopping worker, leaving task unclaimed", "worker_id", workerID, "task_id", id)
			return
		}

		p.processTask(id, workerID)
	}
}

// processTask claims a task and drives it to a terminal status
func (p *WorkerPool) processTask(id uuid.UUID, workerID int) {
	logger := p.logger.With("task_id", id, "worker_id", workerID)

	task, err := p.registry.Claim(p.ctx, id)
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			// Typically a task cancelled while it waited in the queue
			logger.Debug("skipping task that is no longer pending", "status", task.Status)
		} else {
			logger.Warn("failed to claim task", "error", err)
		}
		return
	}

	logger.Info("processing task", "owner", task.Owner, "payload_kind", task.Payload.Kind)
	start := time.Now()

	result, err := p.run(id, task.Payload, logger)
	if err != nil {
		message := redact.Error(err)
		logger.Error("task failed", "error", message, "duration_ms", time.Since(start).Milliseconds())
		if _, failErr := p.registry.Fail(context.Background(), id, message); failErr != nil {
			logger.Error("failed to record task failure", "error", failErr)
		}
		return
	}

	if _, err := p.registry.Complete(context.Background(), id, result); err != nil {
		logger.Error("failed to record task result", "error", err)
		return
	}
	logger.Info("task completed", "duration_ms", time.Since(start).Milliseconds())
}

// run calls the provider with retries. Transient failures are retried with
// exponential backoff; permanent failures and panics end the task at once.
func (p *WorkerPool) run(id uuid.UUID, payload domain.Payload, logger *slog.Logger) (domain.Result, error) {
	backoff := retry.NewExponential(p.config.RetryBaseDelay)
	backoff = retry.WithCappedDuration(p.config.RetryMaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(p.config.MaxRetries), backoff)

	var (
		result  domain.Result
		lastErr error
		attempt int
	)

	err := retry.Do(p.ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			if _, err := p.registry.RecordRetry(id, redact.Error(lastErr)); err != nil {
				return err
			}
			logger.Warn("retrying task", "attempt", attempt+1, "last_error", redact.Error(lastErr))
		}
		attempt++

		res, err := p.call(ctx, payload)
		if err == nil {
			result = res
			return nil
		}

		lastErr = err
		if inference.IsPermanent(err) || errors.Is(err, ErrProviderPanic) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return result, nil
	}

	if p.ctx.Err() != nil {
		return nil, fmt.Errorf("worker pool stopped before task finished: %w", p.ctx.Err())
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, err
}

// call performs a single provider call under the configured timeout. The
// provider runs in its own goroutine so that a call ignoring its context
// still cannot stall the worker past the deadline.
func (p *WorkerPool) call(ctx context.Context, payload domain.Payload) (domain.Result, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", inference.ErrTransient, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()

	type outcome struct {
		result domain.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		var (
			pc  panics.Catcher
			out outcome
		)
		pc.Try(func() {
			out.result, out.err = p.provider.Analyze(callCtx, payload)
		})
		if r := pc.Recovered(); r != nil {
			out = outcome{err: fmt.Errorf("%w: %v", ErrProviderPanic, r.Value)}
		}
		done <- out
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, inference.Timeout(p.config.CallTimeout, out.err)
		}
		return out.result, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, inference.Timeout(p.config.CallTimeout, callCtx.Err())
	}
}
