package inference

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by inference providers
var (
	// ErrTransient is returned for temporary errors that might resolve on retry
	ErrTransient = errors.New("transient inference error")

	// ErrTimeout is returned when a provider call exceeds its deadline
	ErrTimeout = errors.New("inference timeout")

	// ErrInvalidResponse is returned when the provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from inference provider")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by inference provider safety filters")

	// ErrInvalidConfig is returned when the provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid inference provider configuration")
)

// IsPermanent reports whether err can never succeed on retry.
// Unknown errors are treated as transient.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrContentBlocked)
}

// Timeout wraps a deadline error into an ErrTimeout carrying the limit that was hit.
func Timeout(limit time.Duration, cause error) error {
	return fmt.Errorf("%w: no response within %s: %v", ErrTimeout, limit, cause)
}
