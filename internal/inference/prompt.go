package inference

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/pulseweave/internal/domain"
)

//go:embed prompts/*
var promptFS embed.FS

// TaskTypes are the task types providers are asked to choose from
var TaskTypes = []string{"meeting", "shopping", "trip", "pickup", "reminder", "other"}

// Omissions lists, per task type, details speakers tend to leave out
var Omissions = map[string][]string{
	"meeting":  {"attendees", "room", "agenda", "materials"},
	"shopping": {"quantity", "budget"},
	"trip":     {"tickets", "weather"},
	"pickup":   {"person_name", "time_window"},
}

// promptData is the template input
type promptData struct {
	TaskTypes []string
	Omissions map[string][]string
	Text      string
	Event     *domain.Event
}

// PromptBuilder renders the system and user prompts sent to chat-style models
type PromptBuilder struct {
	system string
	user   *template.Template
}

// NewPromptBuilder loads the user prompt template from templatePath, or the
// built-in template when templatePath is empty.
func NewPromptBuilder(templatePath string) (*PromptBuilder, error) {
	system, err := promptFS.ReadFile("prompts/system.txt")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read system prompt: %v", ErrInvalidConfig, err)
	}

	var content []byte
	if templatePath == "" {
		content, err = promptFS.ReadFile("prompts/user.tmpl")
	} else {
		content, err = os.ReadFile(templatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template: %v", ErrInvalidConfig, err)
	}

	tmpl, err := template.New("analysis").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &PromptBuilder{system: strings.TrimSpace(string(system)), user: tmpl}, nil
}

// System returns the system instruction
func (b *PromptBuilder) System() string {
	return b.system
}

// Build renders the user prompt for payload
func (b *PromptBuilder) Build(payload domain.Payload) (string, error) {
	if payload.Text == "" {
		return "", fmt.Errorf("%w: payload text is empty", domain.ErrValidation)
	}

	var buf bytes.Buffer
	err := b.user.Execute(&buf, promptData{
		TaskTypes: TaskTypes,
		Omissions: Omissions,
		Text:      payload.Text,
		Event:     payload.Event,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
