package task

import (
	"errors"
	"fmt"
)

// Common errors returned by the task package
var (
	// ErrTaskNotFound is returned when no task exists for the given id
	ErrTaskNotFound = errors.New("task not found")

	// ErrStateConflict is the parent of every error caused by a request that
	// does not fit the task's current status
	ErrStateConflict = errors.New("task state conflict")

	// ErrAlreadyClaimed is returned when claiming a task that is no longer pending
	ErrAlreadyClaimed = fmt.Errorf("%w: task already claimed", ErrStateConflict)

	// ErrInvalidTransition is returned when a transition is not allowed from the current status
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrStateConflict)

	// ErrTooLate is returned when cancelling a task that has already been claimed or finished
	ErrTooLate = fmt.Errorf("%w: task can no longer be cancelled", ErrStateConflict)

	// ErrRegistryClosed is returned when creating tasks after the registry was closed
	ErrRegistryClosed = errors.New("task registry is closed")

	// ErrQueueClosed is returned by the queue once it has been closed
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrProviderPanic is returned when an inference provider panics
	ErrProviderPanic = errors.New("inference provider panicked")
)
