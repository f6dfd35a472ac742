// Package tts defines the Provider interface for speech-synthesis backends.
//
// A TTS provider turns the probe prompt text into an audio artifact in a
// fixed container format. Synthesis happens once per prompt and the result is
// cached by content hash, so the interface is deliberately batch-shaped
// rather than streaming.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"io"
)

// Provider is the abstraction over any speech-synthesis backend.
type Provider interface {
	// Synthesize renders text as audio and writes the complete artifact to w.
	// The container format of the written bytes is fixed per provider and
	// reported by Format.
	//
	// A non-nil error aborts the enclosing operation; partial output may have
	// been written to w.
	Synthesize(ctx context.Context, text string, w io.Writer) error

	// Format returns the container format of synthesized artifacts
	// (e.g., "wav", "mp3"), used for cache file naming.
	Format() string
}
