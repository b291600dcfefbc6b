package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayload(t *testing.T) {
	t.Parallel()

	event := &Event{EventID: "evt-1", Transcript: "  pick up the kids at five  "}

	tests := []struct {
		name     string
		text     string
		event    *Event
		wantKind PayloadKind
		wantText string
		wantErr  error
	}{
		{
			name:     "text only",
			text:     "  schedule a meeting tomorrow ",
			wantKind: PayloadText,
			wantText: "schedule a meeting tomorrow",
		},
		{
			name:     "text wins over event",
			text:     "buy milk",
			event:    event,
			wantKind: PayloadText,
			wantText: "buy milk",
		},
		{
			name:     "event transcript",
			event:    event,
			wantKind: PayloadEvent,
			wantText: "pick up the kids at five",
		},
		{
			name:    "blank text and no event",
			text:    "   ",
			wantErr: ErrValidation,
		},
		{
			name:    "event with blank transcript",
			event:   &Event{EventID: "evt-2", Transcript: " "},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewPayload(tt.text, tt.event)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, tt.wantText, p.Text)
			assert.NoError(t, p.Validate())
		})
	}
}

func TestPayloadValidate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Payload{Kind: "audio", Text: "x"}.Validate(), ErrInvalidPayloadKind)
	assert.ErrorIs(t, Payload{Kind: PayloadText}.Validate(), ErrValidation)
	assert.NoError(t, Payload{Kind: PayloadEvent, Text: "x", Event: &Event{Transcript: "x"}}.Validate())
}
