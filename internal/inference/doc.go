// Package inference defines the boundary between the task pipeline and the
// external language-model services that analyze transcripts. Adapters for
// concrete backends (Gemini, OpenAI-compatible chat completion APIs and a
// local keyword rule engine) live under internal/platform and implement the
// Provider interface declared here.
package inference
