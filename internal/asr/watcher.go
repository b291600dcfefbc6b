package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/ring"
	"github.com/spf13/afero"
)

// TaskStore is the part of the task registry the watcher needs
type TaskStore interface {
	Create(ctx context.Context, payload domain.Payload, owner string) (domain.Task, error)
	Get(id uuid.UUID) (domain.Task, error)
}

// Config holds configuration for the watcher
type Config struct {
	// Dir is the directory the ASR process writes markers into
	Dir string

	// PollInterval defines how often to scan Dir. If zero, defaults to one second
	PollInterval time.Duration

	// MaxHistory bounds the ingested results returned by RecentResults
	MaxHistory int

	// LedgerCapacity and LedgerRetention bound the dedupe ledger
	LedgerCapacity  int
	LedgerRetention time.Duration

	// WatchEvents triggers early polls from filesystem notifications.
	// Only honored on the OS filesystem.
	WatchEvents bool
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		Dir:             "outputs",
		PollInterval:    time.Second,
		MaxHistory:      100,
		LedgerCapacity:  10000,
		LedgerRetention: 24 * time.Hour,
	}
}

// Stats is a point-in-time view of the watcher counters
type Stats struct {
	Running    bool   `json:"is_running"`
	Dir        string `json:"queue_dir"`
	Seen       uint64 `json:"files_seen"`
	Ingested   uint64 `json:"files_ingested"`
	Skipped    uint64 `json:"files_skipped"`
	Errors     uint64 `json:"errors"`
	LedgerSize int    `json:"ledger_size"`
	History    int    `json:"total_processed"`
}

// PollReport summarizes a single directory scan
type PollReport struct {
	Seen     int
	Ingested int
	Skipped  int
	Errors   int
}

// RecentResult is an ingested marker joined with the current state of its task
type RecentResult struct {
	ProcessedFile
	Transcript string        `json:"content"`
	Status     domain.Status `json:"status"`
	Result     domain.Result `json:"inference_result,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type ingested struct {
	file       ProcessedFile
	transcript string
}

// Watcher polls a directory for ASR completion markers and submits each new
// transcript as a system-owned task.
type Watcher struct {
	fs     afero.Fs
	store  TaskStore
	config Config
	logger *slog.Logger

	// pollMu serializes scans and guards the ledger
	pollMu     sync.Mutex
	ledger     *Ledger
	ledgerSize atomic.Int64

	historyMu sync.RWMutex
	history   *ring.Buffer[ingested]

	seen     atomic.Uint64
	ingested atomic.Uint64
	skipped  atomic.Uint64
	errors   atomic.Uint64

	runMu   sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a stopped watcher reading through fs
func NewWatcher(fs afero.Fs, store TaskStore, config Config, logger *slog.Logger) *Watcher {
	defaults := DefaultConfig()
	if config.Dir == "" {
		config.Dir = defaults.Dir
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = defaults.MaxHistory
	}
	if config.LedgerCapacity <= 0 {
		config.LedgerCapacity = defaults.LedgerCapacity
	}

	return &Watcher{
		fs:      fs,
		store:   store,
		config:  config,
		logger:  logger.With("component", "asr_watcher", "dir", config.Dir),
		ledger:  NewLedger(config.LedgerCapacity, config.LedgerRetention),
		history: ring.New[ingested](config.MaxHistory),
	}
}

// Start launches the polling loop. Starting a running watcher is a no-op;
// the return value reports whether this call started it.
func (w *Watcher) Start() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if w.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)

	go w.loop(ctx, w.done)

	w.logger.Info("asr watcher started", "poll_interval", w.config.PollInterval)
	return true
}

// Stop cancels the polling loop and waits for it to exit. Stopping a stopped
// watcher is a no-op; the return value reports whether this call stopped it.
func (w *Watcher) Stop() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if w.cancel == nil {
		return false
	}

	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
	w.running.Store(false)

	w.logger.Info("asr watcher stopped")
	return true
}

// Running reports whether the polling loop is active
func (w *Watcher) Running() bool {
	return w.running.Load()
}

func (w *Watcher) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	var (
		notify <-chan fsnotify.Event
		errs   <-chan error
	)
	if nw := w.openNotifier(); nw != nil {
		defer func() { _ = nw.Close() }()
		notify = nw.Events
		errs = nw.Errors
	}

	w.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.Poll(ctx)

		case ev, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if _, _, marker := parseMarkerName(filepath.Base(ev.Name)); marker {
					w.Poll(ctx)
				}
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("filesystem notification error", "error", err)
		}
	}
}

// openNotifier returns an fsnotify watcher on the directory, or nil when
// notifications are disabled or unavailable. Polling still runs either way.
func (w *Watcher) openNotifier() *fsnotify.Watcher {
	if !w.config.WatchEvents {
		return nil
	}
	if _, ok := w.fs.(*afero.OsFs); !ok {
		w.logger.Debug("filesystem notifications need the OS filesystem, polling only")
		return nil
	}

	nw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("failed to create filesystem watcher, polling only", "error", err)
		return nil
	}
	if err := nw.Add(w.config.Dir); err != nil {
		_ = nw.Close()
		w.logger.Warn("failed to watch directory, polling only", "error", err)
		return nil
	}
	return nw
}

// Poll performs a single scan of the directory. Scans never fail: directory
// and file problems are logged and counted as errors, and a missing
// directory is simply retried on the next poll.
func (w *Watcher) Poll(ctx context.Context) PollReport {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	var report PollReport

	entries, err := afero.ReadDir(w.fs, w.config.Dir)
	if err != nil {
		w.errors.Add(1)
		report.Errors++
		w.logger.Warn("failed to list asr directory", "error", err)
		return report
	}

	for _, info := range entries {
		if ctx.Err() != nil {
			break
		}

		marker, ok := ParseMarker(info)
		if !ok {
			continue
		}

		w.seen.Add(1)
		report.Seen++

		key := marker.Key()
		if w.ledger.Contains(key) {
			w.skipped.Add(1)
			report.Skipped++
			continue
		}

		switch err := w.ingest(ctx, marker, key); {
		case err == nil:
			w.ingested.Add(1)
			report.Ingested++

		case errors.Is(err, ErrMalformedMarker):
			// recorded as processed so a bad file is not re-read forever
			w.ledger.Add(ProcessedFile{Key: key, Filename: marker.Name, StreamID: marker.StreamID})
			w.ledgerSize.Store(int64(w.ledger.Len()))
			w.errors.Add(1)
			report.Errors++
			w.logger.Warn("skipping malformed asr marker", "file", marker.Name, "error", err)

		default:
			w.errors.Add(1)
			report.Errors++
			w.logger.Error("failed to ingest asr marker", "file", marker.Name, "error", err)
		}
	}

	if report.Ingested > 0 || report.Errors > 0 {
		w.logger.Info("asr directory scanned",
			"seen", report.Seen,
			"ingested", report.Ingested,
			"skipped", report.Skipped,
			"errors", report.Errors)
	}
	return report
}

func (w *Watcher) ingest(ctx context.Context, marker Marker, key string) error {
	path := filepath.Join(w.config.Dir, marker.Name)

	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return fmt.Errorf("%w: read failed: %v", ErrMalformedMarker, err)
	}

	transcript, err := ParseTranscript(data)
	if err != nil {
		return err
	}

	payload, err := BuildPayload(marker, transcript, w.findAudio(marker))
	if err != nil {
		return err
	}

	task, err := w.store.Create(ctx, payload, domain.SystemOwner)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	rec := ProcessedFile{
		Key:        key,
		Filename:   transcript.Filename,
		StreamID:   payload.Event.StreamID,
		TaskID:     task.ID,
		IngestedAt: time.Now().UTC(),
	}
	w.ledger.Add(rec)
	w.ledgerSize.Store(int64(w.ledger.Len()))

	w.historyMu.Lock()
	w.history.Push(ingested{file: rec, transcript: transcript.Content})
	w.historyMu.Unlock()

	w.logger.Debug("asr marker ingested", "file", marker.Name, "task_id", task.ID)
	return nil
}

func (w *Watcher) findAudio(marker Marker) string {
	stem := filepath.Join(w.config.Dir, marker.Stem())
	for _, ext := range AudioExtensions {
		if ok, _ := afero.Exists(w.fs, stem+ext); ok {
			return stem + ext
		}
	}
	return ""
}

// Stats returns the current watcher counters
func (w *Watcher) Stats() Stats {
	w.historyMu.RLock()
	history := w.history.Len()
	w.historyMu.RUnlock()

	return Stats{
		Running:    w.Running(),
		Dir:        w.config.Dir,
		Seen:       w.seen.Load(),
		Ingested:   w.ingested.Load(),
		Skipped:    w.skipped.Load(),
		Errors:     w.errors.Load(),
		LedgerSize: int(w.ledgerSize.Load()),
		History:    history,
	}
}

// RecentResults returns up to limit ingested markers, newest first, each
// with the current status and result of its task. Tasks already pruned from
// the registry come back with an empty status.
func (w *Watcher) RecentResults(limit int) []RecentResult {
	w.historyMu.RLock()
	items := w.history.Newest(limit)
	w.historyMu.RUnlock()

	out := make([]RecentResult, 0, len(items))
	for _, item := range items {
		res := RecentResult{ProcessedFile: item.file, Transcript: item.transcript}
		if task, err := w.store.Get(item.file.TaskID); err == nil {
			res.Status = task.Status
			res.Result = task.Result
			res.Error = task.Error
		}
		out = append(out, res)
	}
	return out
}
