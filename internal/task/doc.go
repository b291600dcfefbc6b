// Package task owns the lifecycle of analysis tasks. The Registry is the single
// source of truth for task state and enforces the status state machine; the
// Queue hands task ids to the WorkerPool in FIFO order; the WorkerPool runs each
// task through an inference provider with retries, timeouts and rate limiting;
// the Janitor prunes finished tasks once they age out of the retention window.
package task
