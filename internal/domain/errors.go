package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyTranscript is returned when an event carries no transcript text.
	ErrEmptyTranscript = errors.New("event transcript cannot be empty")

	// ErrInvalidStatus is returned when a task status is not one of the known values.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPayloadKind is returned when a payload kind is not text or event.
	ErrInvalidPayloadKind = errors.New("invalid payload kind")
)
