package resilience

import (
	"context"

	"github.com/MrWong99/voxprobe/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker. The typical pairing
// is the OpenAI transcription API as primary with a local whisper.cpp server
// as fallback, so a flaky network does not abort a probing session in the
// middle of the verify step.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe converts the recording at path to text using the first healthy
// provider. If the primary fails, subsequent fallbacks are tried in order.
func (f *STTFallback) Transcribe(ctx context.Context, path string) (string, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, path)
	})
}
