package asr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/phrazzld/pulseweave/internal/domain"
)

// Event metadata stamped on every ingested transcript
const (
	EventSource     = "asr_queue"
	AudioSourceType = "file_queue"
	UnknownReason   = "unknown"
	markerExtension = ".json"
)

// ErrMalformedMarker is returned when a marker file cannot be turned into a task
var ErrMalformedMarker = errors.New("malformed asr marker")

var (
	markerPattern = regexp.MustCompile(
		`^(\d{8}T\d{6}|\d{4}-\d{2}-\d{2}T\d{2}[-:]\d{2}[-:]\d{2})_(.+)\.json$`)

	timestampLayouts = []string{
		"20060102T150405",
		"2006-01-02T15-04-05",
		"2006-01-02T15:04:05",
	}

	// AudioExtensions lists the sibling audio files a marker may point at, in lookup order
	AudioExtensions = []string{".wav", ".mp3", ".flac", ".m4a", ".pcm"}
)

// Marker is a completion-marker file found in the watched directory
type Marker struct {
	Name     string
	Stamp    time.Time
	StreamID string
	ModTime  time.Time
	Size     int64
}

// ParseMarker recognizes a completion marker by name. It returns false for
// every other directory entry.
func ParseMarker(info os.FileInfo) (Marker, bool) {
	if info.IsDir() {
		return Marker{}, false
	}

	stamp, stream, ok := parseMarkerName(info.Name())
	if !ok {
		return Marker{}, false
	}

	return Marker{
		Name:     info.Name(),
		Stamp:    stamp,
		StreamID: stream,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, true
}

func parseMarkerName(name string) (time.Time, string, bool) {
	m := markerPattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, "", false
	}

	for _, layout := range timestampLayouts {
		if stamp, err := time.ParseInLocation(layout, m[1], time.UTC); err == nil {
			return stamp, m[2], true
		}
	}
	return time.Time{}, "", false
}

// Key is the dedupe key of the marker: name plus modification signature.
// Rewriting a marker in place yields a new key.
func (m Marker) Key() string {
	return fmt.Sprintf("%s|%d|%d", m.Name, m.ModTime.UnixNano(), m.Size)
}

// Stem returns the marker name without its extension
func (m Marker) Stem() string {
	return strings.TrimSuffix(m.Name, markerExtension)
}

// Transcript is the JSON body of a marker file as written by the ASR process
type Transcript struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Reason   string `json:"reason"`
	Force    bool   `json:"force"`
	StreamID string `json:"stream_id"`
}

// ParseTranscript decodes a marker body. Filename and content are required.
func ParseTranscript(data []byte) (Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", ErrMalformedMarker, err)
	}

	t.Filename = strings.TrimSpace(t.Filename)
	t.Content = strings.TrimSpace(t.Content)
	if t.Filename == "" {
		return Transcript{}, fmt.Errorf("%w: filename is required", ErrMalformedMarker)
	}
	if t.Content == "" {
		return Transcript{}, fmt.Errorf("%w: content is empty", ErrMalformedMarker)
	}
	return t, nil
}

// BuildPayload turns a parsed marker into an event payload. audioPath is the
// sibling audio file, or empty when none was found.
func BuildPayload(marker Marker, t Transcript, audioPath string) (domain.Payload, error) {
	stream := t.StreamID
	if stream == "" {
		stream = marker.StreamID
	}

	reason := t.Reason
	if reason == "" {
		reason = UnknownReason
	}

	event := &domain.Event{
		EventID:    fmt.Sprintf("asr_%s_%d", stream, marker.Stamp.Unix()),
		Transcript: t.Content,
		Source:     EventSource,
		StreamID:   stream,
		Filename:   t.Filename,
		Reason:     reason,
		Force:      t.Force,
		Timestamp:  marker.Stamp.Format("2006-01-02T15:04:05"),
		AudioFeatures: &domain.AudioFeatures{
			SourceType: AudioSourceType,
			StreamID:   stream,
		},
	}

	if audioPath != "" {
		event.RecordingReference = &domain.RecordingReference{
			RecordingID:    marker.Stem(),
			AudioSegmentID: filepath.Base(audioPath),
			AudioURL:       audioPath,
		}
	}

	payload, err := domain.NewPayload("", event)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("%w: %v", ErrMalformedMarker, err)
	}
	return payload, nil
}
