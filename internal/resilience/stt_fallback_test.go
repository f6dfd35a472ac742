package resilience

import (
	"context"
	"errors"
	"testing"
)

// scriptedSTT returns its fixed transcript or error on every call.
type scriptedSTT struct {
	transcript string
	err        error
	calls      int
}

func (s *scriptedSTT) Transcribe(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.transcript, s.err
}

func TestSTTFallback_PrimarySuccess(t *testing.T) {
	primary := &scriptedSTT{transcript: "hello"}
	fallback := &scriptedSTT{transcript: "unused"}

	f := NewSTTFallback(primary, "openai", FallbackConfig{})
	f.AddFallback("whisper-server", fallback)

	got, err := f.Transcribe(context.Background(), "reply.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello" {
		t.Errorf("transcript = %q, want %q", got, "hello")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestSTTFallback_FailoverToSecondary(t *testing.T) {
	primary := &scriptedSTT{err: errors.New("api down")}
	fallback := &scriptedSTT{transcript: "local result"}

	f := NewSTTFallback(primary, "openai", FallbackConfig{})
	f.AddFallback("whisper-server", fallback)

	got, err := f.Transcribe(context.Background(), "reply.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "local result" {
		t.Errorf("transcript = %q, want fallback result", got)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	primary := &scriptedSTT{err: errors.New("api down")}
	fallback := &scriptedSTT{err: errors.New("server down")}

	f := NewSTTFallback(primary, "openai", FallbackConfig{})
	f.AddFallback("whisper-server", fallback)

	_, err := f.Transcribe(context.Background(), "reply.wav")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Transcribe err = %v, want ErrAllFailed", err)
	}
}

func TestSTTFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &scriptedSTT{err: errors.New("api down")}
	fallback := &scriptedSTT{transcript: "local"}

	f := NewSTTFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	f.AddFallback("whisper-server", fallback)

	// Trip the primary's breaker.
	for i := 0; i < 2; i++ {
		if _, err := f.Transcribe(context.Background(), "reply.wav"); err != nil {
			t.Fatalf("Transcribe %d: %v", i, err)
		}
	}
	callsBefore := primary.calls

	if _, err := f.Transcribe(context.Background(), "reply.wav"); err != nil {
		t.Fatalf("Transcribe with open breaker: %v", err)
	}
	if primary.calls != callsBefore {
		t.Errorf("primary called while its breaker was open")
	}
}
