package testutils

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// DiscardLogger returns a logger that drops every record
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogEntry is a captured log record flattened to a map. The "level" and
// "message" keys hold the record level and message.
type LogEntry map[string]any

// LogRecorder is a memory-backed slog.Handler for asserting on log output.
// Handlers derived through WithAttrs and WithGroup share the recorder's
// entries, so component loggers built with logger.With are captured too.
// Groups are flattened.
type LogRecorder struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	attrs   []slog.Attr
}

// NewLogRecorder returns a recorder and a logger writing to it
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	r := &LogRecorder{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
	return r, slog.New(r)
}

// Enabled implements slog.Handler. Every level is recorded.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	entry := LogEntry{
		"level":   rec.Level.String(),
		"message": rec.Message,
	}
	for _, a := range r.attrs {
		entry[a.Key] = a.Value.Resolve().Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		entry[a.Key] = a.Value.Resolve().Any()
		return true
	})

	r.mu.Lock()
	*r.entries = append(*r.entries, entry)
	r.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogRecorder{
		mu:      r.mu,
		entries: r.entries,
		attrs:   append(slices.Clip(r.attrs), attrs...),
	}
}

// WithGroup implements slog.Handler
func (r *LogRecorder) WithGroup(string) slog.Handler {
	return r
}

// Entries returns a copy of everything captured so far
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(*r.entries)
}

// Find returns the captured entries with the given message
func (r *LogRecorder) Find(message string) []LogEntry {
	var out []LogEntry
	for _, e := range r.Entries() {
		if e["message"] == message {
			out = append(out, e)
		}
	}
	return out
}
