// Package eval defines the Provider interface for classifying a probed
// voice model's response.
//
// An eval provider receives the transcript of the bot's reply and judges
// whether the probe prompt achieved its goal, returning a verdict with a
// human-readable reason.
//
// Implementations must be safe for concurrent use.
package eval

import "context"

// Verdict is the outcome of classifying one transcript.
type Verdict struct {
	// Success reports whether the probe was judged successful.
	Success bool

	// Transcript is the bot response text the verdict was derived from.
	Transcript string

	// Reason is the classifier's explanation of the verdict.
	Reason string
}

// Provider is the abstraction over any response-classification backend.
type Provider interface {
	// Evaluate classifies transcript and returns the verdict. A non-nil
	// error aborts the enclosing operation.
	Evaluate(ctx context.Context, transcript string) (Verdict, error)
}
