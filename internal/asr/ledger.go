package asr

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedFile records that a marker was handled. TaskID is uuid.Nil for
// markers that failed to parse.
type ProcessedFile struct {
	Key        string    `json:"key"`
	Filename   string    `json:"filename"`
	StreamID   string    `json:"stream_id"`
	TaskID     uuid.UUID `json:"task_id"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Ledger remembers processed marker keys in insertion order. Once the ledger
// holds more than capacity entries, the oldest entries are evicted, but only
// those already older than the retention window; a young entry is never
// dropped, so a file still inside the window cannot be ingested twice.
//
// A Ledger is not safe for concurrent use.
type Ledger struct {
	capacity  int
	retention time.Duration
	entries   map[string]ProcessedFile
	order     []string
	now       func() time.Time
}

// NewLedger creates a ledger. A capacity below 1 is raised to 1.
func NewLedger(capacity int, retention time.Duration) *Ledger {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger{
		capacity:  capacity,
		retention: retention,
		entries:   make(map[string]ProcessedFile, capacity),
		now:       time.Now,
	}
}

// Contains reports whether key was already processed
func (l *Ledger) Contains(key string) bool {
	_, ok := l.entries[key]
	return ok
}

// Get returns the record stored for key
func (l *Ledger) Get(key string) (ProcessedFile, bool) {
	rec, ok := l.entries[key]
	return rec, ok
}

// Add stores rec and evicts expired overflow entries. Re-adding a known key
// replaces its record without changing its position.
func (l *Ledger) Add(rec ProcessedFile) {
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = l.now()
	}
	if _, ok := l.entries[rec.Key]; !ok {
		l.order = append(l.order, rec.Key)
	}
	l.entries[rec.Key] = rec
	l.evict()
}

// Len returns the number of remembered keys
func (l *Ledger) Len() int {
	return len(l.entries)
}

func (l *Ledger) evict() {
	cutoff := l.now().Add(-l.retention)
	drop := 0
	for len(l.order)-drop > l.capacity {
		oldest := l.entries[l.order[drop]]
		if oldest.IngestedAt.After(cutoff) {
			break
		}
		delete(l.entries, oldest.Key)
		drop++
	}
	if drop > 0 {
		l.order = append(l.order[:0:0], l.order[drop:]...)
	}
}
