// Package stt defines the Provider interface for transcription backends.
//
// The recorded bot response is a short, complete WAV file, so the interface
// is batch-shaped: one file in, one transcript out. Streaming partials are
// out of scope.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any transcription backend.
type Provider interface {
	// Transcribe reads the audio file at path and returns the transcript with
	// surrounding whitespace trimmed. A non-nil error aborts the enclosing
	// operation.
	Transcribe(ctx context.Context, path string) (string, error)
}
