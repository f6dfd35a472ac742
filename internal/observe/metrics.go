// Package observe provides application-wide observability primitives for
// voxprobe: OpenTelemetry metrics, structured logging helpers, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxprobe metrics.
const meterName = "github.com/MrWong99/voxprobe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per boundary service ---

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// EvalDuration tracks transcript classification latency.
	EvalDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// CacheLookups counts prompt-cache lookups. Use with attribute:
	//   attribute.String("status", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// --- Bridge counters ---

	// BridgeFramesForwarded counts audio blocks carried from the capture
	// callback to the playback callback.
	BridgeFramesForwarded metric.Int64Counter

	// BridgeOverflows counts capture blocks dropped because the frame queue
	// was full.
	BridgeOverflows metric.Int64Counter

	// BridgeUnderruns counts playback callbacks that had to emit silence
	// because the frame queue was empty.
	BridgeUnderruns metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live probing sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for speech-API latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TTSDuration, err = m.Float64Histogram("voxprobe.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("voxprobe.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EvalDuration, err = m.Float64Histogram("voxprobe.eval.duration",
		metric.WithDescription("Latency of transcript classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("voxprobe.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("voxprobe.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("voxprobe.cache.lookups",
		metric.WithDescription("Total prompt-cache lookups by status (hit or miss)."),
	); err != nil {
		return nil, err
	}

	// Bridge counters.
	if met.BridgeFramesForwarded, err = m.Int64Counter("voxprobe.bridge.frames_forwarded",
		metric.WithDescription("Audio blocks forwarded from capture to playback."),
	); err != nil {
		return nil, err
	}
	if met.BridgeOverflows, err = m.Int64Counter("voxprobe.bridge.overflows",
		metric.WithDescription("Capture blocks dropped because the frame queue was full."),
	); err != nil {
		return nil, err
	}
	if met.BridgeUnderruns, err = m.Int64Counter("voxprobe.bridge.underruns",
		metric.WithDescription("Playback callbacks that emitted silence because the frame queue was empty."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxprobe.active_sessions",
		metric.WithDescription("Number of live probing sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxprobe.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCacheLookup records one prompt-cache lookup with its hit/miss status.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	status := "miss"
	if hit {
		status = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordBridgeStats flushes bridge counter deltas gathered from the realtime
// callbacks. Realtime code must not touch OTel instruments directly, so the
// bridge accumulates plain atomics and the session reports them here.
func (m *Metrics) RecordBridgeStats(ctx context.Context, forwarded, overflows, underruns uint64) {
	if forwarded > 0 {
		m.BridgeFramesForwarded.Add(ctx, int64(forwarded))
	}
	if overflows > 0 {
		m.BridgeOverflows.Add(ctx, int64(overflows))
	}
	if underruns > 0 {
		m.BridgeUnderruns.Add(ctx, int64(underruns))
	}
}
