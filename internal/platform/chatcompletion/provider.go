// Package chatcompletion provides an inference.Provider for OpenAI-compatible
// chat completion APIs. It serves both the openai and deepseek provider names,
// which differ only in their default base URL and model.
package chatcompletion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/inference"
)

// Defaults per provider name
var defaults = map[string]struct {
	baseURL string
	model   string
}{
	"openai":   {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	"deepseek": {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
}

// maxErrorBody bounds how much of an error response is kept for the error message
const maxErrorBody = 512

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type request struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type response struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Provider implements inference.Provider against a chat completion endpoint
type Provider struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	prompts  *inference.PromptBuilder
	logger   *slog.Logger
}

// NewProvider creates a provider for cfg.Name ("openai" or "deepseek")
func NewProvider(logger *slog.Logger, cfg config.ProviderConfig) (*Provider, error) {
	return NewProviderWithClient(logger, cfg, cleanhttp.DefaultPooledClient())
}

// NewProviderWithClient is NewProvider with an explicit HTTP client
func NewProviderWithClient(logger *slog.Logger, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	d, ok := defaults[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported chat completion provider %q", inference.ErrInvalidConfig, cfg.Name)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s API key cannot be empty", inference.ErrInvalidConfig, cfg.Name)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = d.baseURL
	}
	model := cfg.Model
	if model == "" {
		model = d.model
	}

	prompts, err := inference.NewPromptBuilder(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	return &Provider{
		name:     cfg.Name,
		endpoint: strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		apiKey:   cfg.APIKey,
		model:    model,
		client:   client,
		prompts:  prompts,
		logger:   logger.With("component", "chat_completion_provider", "provider", cfg.Name, "model", model),
	}, nil
}

// Name implements inference.Provider
func (p *Provider) Name() string {
	return p.name + ":" + p.model
}

// Analyze implements inference.Provider
func (p *Provider) Analyze(ctx context.Context, payload domain.Payload) (domain.Result, error) {
	prompt, err := p.prompts.Build(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inference.ErrInvalidConfig, err)
	}

	body, err := json.Marshal(request{
		Model: p.model,
		Messages: []message{
			{Role: "system", Content: p.prompts.System()},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      300,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", inference.ErrInvalidConfig, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s request failed: %v", inference.ErrTransient, p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", inference.ErrInvalidResponse, p.name, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", inference.ErrInvalidResponse)
	}
	if decoded.Choices[0].FinishReason == "content_filter" {
		return nil, fmt.Errorf("%w: response withheld by content filter", inference.ErrContentBlocked)
	}

	result, err := inference.ParseResult(decoded.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	result["model_version"] = p.Name()
	return result, nil
}

// statusError classifies a non-200 response. Rate limiting and server errors
// are transient; any other client error means the request can never succeed.
func (p *Provider) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("%s returned HTTP %d: %s", p.name, resp.StatusCode, strings.TrimSpace(string(snippet)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", inference.ErrTransient, msg)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", inference.ErrInvalidConfig, msg)
	default:
		p.logger.Warn("unexpected status from chat completion API", "status", resp.StatusCode)
		return fmt.Errorf("%w: %s", inference.ErrInvalidResponse, msg)
	}
}
