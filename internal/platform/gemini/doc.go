// Package gemini provides an implementation of the inference.Provider interface
// that uses Google's Gemini API to analyze transcripts.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the task pipeline to Google's external Gemini AI service. It
// renders prompts with the shared inference.PromptBuilder, asks the model for
// a JSON answer and classifies every failure with the inference sentinel
// errors:
//
//   - transport and API errors are transient and left to the worker pool's retry policy
//   - safety blocks map to inference.ErrContentBlocked
//   - empty or unparsable answers map to inference.ErrInvalidResponse
//
// The package depends on the google.golang.org/genai client library.
package gemini
