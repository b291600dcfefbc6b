package domain

import (
	"fmt"
	"strings"
)

// PayloadKind tags which input shape a task was submitted with
type PayloadKind string

// Supported payload kinds
const (
	PayloadText  PayloadKind = "text"
	PayloadEvent PayloadKind = "event"
)

// Payload is the input of an analysis task. Whatever shape it was submitted
// in, Text always holds the canonical text to analyze; Event is only set for
// event submissions and carries the structured metadata alongside.
type Payload struct {
	Kind  PayloadKind `json:"kind"`
	Text  string      `json:"text"`
	Event *Event      `json:"event,omitempty"`
}

// NewPayload resolves a text-or-event submission into a Payload.
// Plain text wins when both are present. It returns an error wrapping
// ErrValidation when neither a non-blank text nor an event with a
// non-blank transcript is given.
func NewPayload(text string, event *Event) (Payload, error) {
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return Payload{Kind: PayloadText, Text: trimmed, Event: event}, nil
	}

	if event == nil {
		return Payload{}, fmt.Errorf("%w: text or event.transcript is required", ErrValidation)
	}

	transcript := strings.TrimSpace(event.Transcript)
	if transcript == "" {
		return Payload{}, fmt.Errorf("%w: %v", ErrValidation, ErrEmptyTranscript)
	}

	return Payload{Kind: PayloadEvent, Text: transcript, Event: event}, nil
}

// Validate checks that a payload was built through NewPayload.
func (p Payload) Validate() error {
	switch p.Kind {
	case PayloadText, PayloadEvent:
	default:
		return ErrInvalidPayloadKind
	}

	if p.Text == "" {
		return fmt.Errorf("%w: payload text is empty", ErrValidation)
	}

	return nil
}

// Event is a structured audio event, typically produced by an upstream ASR
// and diarization pipeline. Only Transcript is needed for analysis; the
// remaining fields are carried through to the provider untouched.
type Event struct {
	EventID            string              `json:"event_id,omitempty"`
	EventType          *EventType          `json:"event_type,omitempty"`
	RecordingReference *RecordingReference `json:"recording_reference,omitempty"`
	StartTime          string              `json:"start_time,omitempty"`
	EndTime            string              `json:"end_time,omitempty"`
	StartOffsetSec     float64             `json:"start_offset_sec,omitempty"`
	EndOffsetSec       float64             `json:"end_offset_sec,omitempty"`
	Confidence         float64             `json:"confidence,omitempty"`
	Speakers           []Speaker           `json:"speakers,omitempty"`
	Transcript         string              `json:"transcript"`
	AudioFeatures      *AudioFeatures      `json:"audio_features,omitempty"`
	NLU                *NLU                `json:"nlu,omitempty"`
	Entities           []Entity            `json:"entities,omitempty"`
	Privacy            *Privacy            `json:"privacy,omitempty"`
	Tags               []string            `json:"tags,omitempty"`
	RelatedEventIDs    []string            `json:"related_event_ids,omitempty"`
	Source             string              `json:"source,omitempty"`
	StreamID           string              `json:"stream_id,omitempty"`
	Filename           string              `json:"filename,omitempty"`
	Reason             string              `json:"reason,omitempty"`
	Force              bool                `json:"force,omitempty"`
	Timestamp          string              `json:"timestamp,omitempty"`
}

// EventType labels the kind of audio event
type EventType struct {
	Label      string `json:"label"`
	OntologyID string `json:"ontology_id,omitempty"`
}

// RecordingReference points back at the audio an event was cut from
type RecordingReference struct {
	RecordingID    string `json:"recording_id,omitempty"`
	AudioSegmentID string `json:"audio_segment_id,omitempty"`
	AudioURL       string `json:"audio_url,omitempty"`
}

// Speaker is one diarized speaker of an event
type Speaker struct {
	SpeakerID         string  `json:"speaker_id"`
	SpeakerLabel      string  `json:"speaker_label"`
	IsUser            bool    `json:"is_user"`
	SpeakerConfidence float64 `json:"speaker_confidence"`
}

// AudioFeatures holds signal-level measurements of an event
type AudioFeatures struct {
	SourceType    string   `json:"source_type,omitempty"`
	StreamID      string   `json:"stream_id,omitempty"`
	AvgVolumeDB   *float64 `json:"avg_volume_db,omitempty"`
	SNRDB         *float64 `json:"snr_db,omitempty"`
	SpeechRateWPM *float64 `json:"speech_rate_wpm,omitempty"`
	Language      string   `json:"language,omitempty"`
	ASRConfidence *float64 `json:"asr_confidence,omitempty"`
}

// NLU carries upstream intent detection
type NLU struct {
	Intents []Intent `json:"intents,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Intent is a single detected intent
type Intent struct {
	IntentName string         `json:"intent_name"`
	Score      float64        `json:"score"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Entity is a named entity found in the transcript
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Privacy flags personally identifiable content
type Privacy struct {
	ContainsPII        bool     `json:"contains_pii"`
	PIITypes           []string `json:"pii_types,omitempty"`
	RedactionSuggested bool     `json:"redaction_suggested,omitempty"`
}
