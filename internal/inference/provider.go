package inference

import (
	"context"

	"github.com/phrazzld/pulseweave/internal/domain"
)

// Provider analyzes a task payload and returns a structured result.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
type Provider interface {
	// Analyze runs a single inference over the payload.
	//
	// Implementations must honour ctx cancellation and classify failures with
	// the sentinel errors of this package so the worker pool can decide
	// whether a retry is worthwhile. The returned Result is opaque to the
	// gateway and is passed to clients as-is.
	Analyze(ctx context.Context, payload domain.Payload) (domain.Result, error)

	// Name identifies the provider in logs and results
	Name() string
}

// ProviderFunc adapts a plain function to the Provider interface.
// It is mostly useful in tests.
type ProviderFunc func(ctx context.Context, payload domain.Payload) (domain.Result, error)

// Analyze calls f(ctx, payload).
func (f ProviderFunc) Analyze(ctx context.Context, payload domain.Payload) (domain.Result, error) {
	return f(ctx, payload)
}

// Name implements Provider.
func (f ProviderFunc) Name() string {
	return "func"
}
