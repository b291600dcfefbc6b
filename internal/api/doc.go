// Package api is the thin HTTP query surface of the gateway. Handlers
// translate requests into calls on the task registry, the ASR watcher and
// the stats aggregator, and map domain errors to HTTP status codes.
package api
