package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when no entry of a [FallbackGroup] produced a
// result: every backend either failed or sat behind an open circuit breaker.
// The last underlying error is attached to the message.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig is applied to the circuit breaker created for every entry of
// a [FallbackGroup]. The Name field of the embedded breaker config is ignored;
// each entry's breaker is named after the entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// fallbackEntry pairs one backend with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds a primary backend and zero or more fallbacks of the same
// provider type, each behind its own circuit breaker. Calls are attempted in
// registration order; a failing or circuit-open entry is passed over in favour
// of the next one. [STTFallback] wraps a group of transcription providers, the
// one boundary service with more than one implementation.
//
// Safe for concurrent use once all fallbacks are registered.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first entry. Register
// fallbacks with [FallbackGroup.AddFallback] before issuing calls.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend. Entries are tried in the order they were
// added, primary first.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// ExecuteWithResult applies fn to each entry of fg in order until one call
// succeeds, returning that call's result. Entries with an open breaker are
// skipped without being counted as failures. When every entry fails the zero
// result is returned with [ErrAllFailed].
//
// This is a package-level function rather than a method because Go methods
// cannot introduce the result type parameter.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
