package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels records the last request and returns a canned response
type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestProvider(t *testing.T, models *fakeModels) *Provider {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := newProvider(logger, models, config.ProviderConfig{Name: "gemini", APIKey: "test"})
	require.NoError(t, err)
	return p
}

func meetingPayload(t *testing.T) domain.Payload {
	t.Helper()
	p, err := domain.NewPayload("明天开会记得带资料", nil)
	require.NoError(t, err)
	return p
}

func TestNewProvider_MissingKey(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewProvider(context.Background(), logger, config.ProviderConfig{Name: "gemini"})
	assert.ErrorIs(t, err, inference.ErrInvalidConfig)

	_, err = NewProvider(context.Background(), nil, config.ProviderConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestAnalyze_Success(t *testing.T) {
	t.Parallel()

	models := &fakeModels{resp: textResponse(`{"task_type":"meeting","confidence":0.8,"potential_omissions":["room"]}`)}
	p := newTestProvider(t, models)

	result, err := p.Analyze(context.Background(), meetingPayload(t))
	require.NoError(t, err)

	assert.Equal(t, "meeting", result["task_type"])
	assert.InDelta(t, 0.8, result["confidence"], 1e-9)
	assert.Equal(t, "gemini:"+DefaultModel, result["model_version"])
	assert.Contains(t, result, "latency_ms")

	assert.Equal(t, DefaultModel, models.model)
	require.Len(t, models.contents, 1)
	assert.Contains(t, models.contents[0].Parts[0].Text, "明天开会记得带资料")
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	require.NotNil(t, models.config.SystemInstruction)
}

func TestAnalyze_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		models  *fakeModels
		wantErr error
	}{
		{
			name:    "api error is transient",
			models:  &fakeModels{err: errors.New("503 service unavailable")},
			wantErr: inference.ErrTransient,
		},
		{
			name:    "nil response",
			models:  &fakeModels{},
			wantErr: inference.ErrInvalidResponse,
		},
		{
			name:    "no candidates",
			models:  &fakeModels{resp: &genai.GenerateContentResponse{}},
			wantErr: inference.ErrInvalidResponse,
		},
		{
			name: "safety block",
			models: &fakeModels{resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			}},
			wantErr: inference.ErrContentBlocked,
		},
		{
			name:    "not json",
			models:  &fakeModels{resp: textResponse("sure, it is a meeting")},
			wantErr: inference.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProvider(t, tt.models)
			_, err := p.Analyze(context.Background(), meetingPayload(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestProvider(t, &fakeModels{err: errors.New("request aborted")})
	_, err := p.Analyze(ctx, meetingPayload(t))
	assert.ErrorIs(t, err, context.Canceled)
}
