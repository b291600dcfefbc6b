package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pulseweave/internal/asr"
	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/events"
	"github.com/phrazzld/pulseweave/internal/inference"
	"github.com/phrazzld/pulseweave/internal/platform/chatcompletion"
	"github.com/phrazzld/pulseweave/internal/platform/gemini"
	"github.com/phrazzld/pulseweave/internal/platform/keyword"
	"github.com/phrazzld/pulseweave/internal/realtime"
	"github.com/phrazzld/pulseweave/internal/service/auth"
	"github.com/phrazzld/pulseweave/internal/stats"
	"github.com/phrazzld/pulseweave/internal/task"
	"github.com/spf13/afero"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Task pipeline
	queue    *task.Queue
	registry *task.Registry
	pool     *task.WorkerPool
	janitor  *task.Janitor
	provider inference.Provider

	// Event system
	eventEmitter *events.InMemoryEventEmitter
	broadcaster  *realtime.Broadcaster

	// Real-time connections
	hub      *realtime.Hub
	realtime *realtime.Server

	watcher    *asr.Watcher
	aggregator *stats.Aggregator

	// authenticator is nil when auth.require_auth is off
	authenticator *auth.Authenticator
}

// newApplication creates a new application instance with all dependencies
// initialized. fs is the filesystem the ASR watcher reads from. Nothing is
// started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, fs afero.Fs) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.provider, err = newProvider(ctx, cfg.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inference provider: %w", err)
	}
	logger.Info("inference provider initialized", "provider", app.provider.Name())

	if cfg.Auth.RequireAuth {
		app.authenticator, err = auth.NewAuthenticator(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize authenticator: %w", err)
		}
		logger.Info("gateway authentication enabled",
			"key", cfg.Auth.GatewayKeyHash != "",
			"jwt", cfg.Auth.JWTSecret != "")
	}

	// Connections and notifications
	app.hub = realtime.NewHub(cfg.Realtime.SendBuffer, logger)
	app.broadcaster = realtime.NewBroadcaster(app.hub, logger)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.broadcaster)

	// Task pipeline
	app.queue = task.NewQueue(logger)
	app.registry = task.NewRegistry(app.queue, app.eventEmitter, task.RegistryConfig{
		HistorySize: cfg.Tasks.HistorySize,
	}, logger)
	app.pool = task.NewWorkerPool(app.registry, app.queue, app.provider, task.WorkerPoolConfig{
		WorkerCount:    cfg.Worker.Count,
		MaxRetries:     cfg.Worker.MaxRetries,
		RetryBaseDelay: cfg.Worker.RetryBaseDelay,
		RetryMaxDelay:  cfg.Worker.RetryMaxDelay,
		CallTimeout:    cfg.Worker.CallTimeout,
		RatePerSecond:  cfg.Worker.RatePerSecond,
		RateBurst:      cfg.Worker.RateBurst,
	}, logger)
	app.janitor = task.NewJanitor(app.registry, task.JanitorConfig{
		Retention: cfg.Tasks.Retention,
		Interval:  cfg.Tasks.PruneInterval,
	}, logger)

	app.watcher = asr.NewWatcher(fs, app.registry, asr.Config{
		Dir:             cfg.ASR.Dir,
		PollInterval:    cfg.ASR.PollInterval,
		MaxHistory:      cfg.ASR.MaxHistory,
		LedgerCapacity:  cfg.ASR.LedgerCapacity,
		LedgerRetention: cfg.ASR.LedgerRetention,
		WatchEvents:     cfg.ASR.WatchEvents,
	}, logger)

	app.aggregator = stats.NewAggregator(app.registry, app.hub, app.watcher)
	dispatcher := realtime.NewDispatcher(app.registry, app.aggregator, logger)
	app.realtime = realtime.NewServer(app.hub, dispatcher, cfg.Realtime, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// newProvider selects the inference provider named in cfg
func newProvider(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger) (inference.Provider, error) {
	switch cfg.Name {
	case "dummy", "mock", "rule":
		return keyword.New(), nil
	case "gemini":
		p, err := gemini.NewProvider(ctx, logger, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai", "deepseek":
		p, err := chatcompletion.NewProvider(logger, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", inference.ErrInvalidConfig, cfg.Name)
	}
}
