package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/inference"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// contentGenerator is the subset of the genai client used by the provider.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Provider implements inference.Provider on top of the Gemini API
type Provider struct {
	logger  *slog.Logger
	models  contentGenerator
	prompts *inference.PromptBuilder
	model   string
}

// NewProvider creates a Gemini provider from configuration.
//
// Returns an error wrapping inference.ErrInvalidConfig when the API key is
// missing, the prompt template cannot be loaded or the client cannot be created.
func NewProvider(ctx context.Context, logger *slog.Logger, cfg config.ProviderConfig) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", inference.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", inference.ErrInvalidConfig, err)
	}

	return newProvider(logger, client.Models, cfg)
}

func newProvider(logger *slog.Logger, models contentGenerator, cfg config.ProviderConfig) (*Provider, error) {
	prompts, err := inference.NewPromptBuilder(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		logger:  logger.With("component", "gemini_provider", "model", model),
		models:  models,
		prompts: prompts,
		model:   model,
	}, nil
}

// Name implements inference.Provider
func (p *Provider) Name() string {
	return "gemini:" + p.model
}

// Analyze implements inference.Provider
func (p *Provider) Analyze(ctx context.Context, payload domain.Payload) (domain.Result, error) {
	prompt, err := p.prompts.Build(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inference.ErrInvalidConfig, err)
	}

	start := time.Now()
	resp, err := p.models.GenerateContent(ctx,
		p.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: p.prompts.System()}}},
		},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Assume transient by default
		p.logger.WarnContext(ctx, "Gemini API call error", "error", err)
		return nil, fmt.Errorf("%w: gemini: %v", inference.ErrTransient, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	result, err := inference.ParseResult(text)
	if err != nil {
		return nil, err
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	result["model_version"] = p.Name()

	p.logger.DebugContext(ctx, "Gemini API call successful",
		"task_type", result["task_type"],
		"latency_ms", result["latency_ms"])
	return result, nil
}

// responseText extracts the text of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", inference.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", inference.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", inference.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", inference.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", inference.ErrInvalidResponse)
	}
	return sb.String(), nil
}
