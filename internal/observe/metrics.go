// Package observe provides the OpenTelemetry metric instruments for the
// recognition pipeline and the Prometheus bridge that exposes them.
//
// Tests should build [Metrics] with [NewMetrics] and a ManualReader-backed
// provider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all datilo metrics.
const meterName = "github.com/ayusman/datilo"

// Metrics holds all metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// Frames counts processed frames. Attribute "hand" is "true" or "false".
	Frames metric.Int64Counter

	// Predictions counts per-frame classifier outputs.
	Predictions metric.Int64Counter

	// Letters counts validated letters. Attribute "letter".
	Letters metric.Int64Counter

	// ClassifyErrors counts frames dropped by feature or classifier errors.
	ClassifyErrors metric.Int64Counter

	// FrameDuration tracks time spent in the per-frame pipeline.
	FrameDuration metric.Float64Histogram

	// SpeechDuration tracks synthesizer run time.
	SpeechDuration metric.Float64Histogram

	// SpeechErrors counts failed or dropped speech jobs. Attribute "reason".
	SpeechErrors metric.Int64Counter

	// HTTPRequestDuration tracks API latency. Attributes "method", "path".
	HTTPRequestDuration metric.Float64Histogram
}

// frameBuckets are in seconds and sized for a 30 fps loop.
var frameBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1, 0.25,
}

// speechBuckets are in seconds, up to the default speech timeout.
var speechBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates all instruments using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("datilo.frames",
		metric.WithDescription("Frames processed by the recognition pipeline."),
	); err != nil {
		return nil, err
	}
	if met.Predictions, err = m.Int64Counter("datilo.predictions",
		metric.WithDescription("Per-frame classifier predictions."),
	); err != nil {
		return nil, err
	}
	if met.Letters, err = m.Int64Counter("datilo.letters",
		metric.WithDescription("Letters validated by the stabilizer."),
	); err != nil {
		return nil, err
	}
	if met.ClassifyErrors, err = m.Int64Counter("datilo.classify.errors",
		metric.WithDescription("Frames skipped because feature extraction or classification failed."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("datilo.frame.duration",
		metric.WithDescription("Time spent processing one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechDuration, err = m.Float64Histogram("datilo.speech.duration",
		metric.WithDescription("Speech synthesizer run time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(speechBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechErrors, err = m.Int64Counter("datilo.speech.errors",
		metric.WithDescription("Speech jobs that failed or were dropped."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("datilo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance created from the global
// meter provider on first use.
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

// RecordFrame records one processed frame.
func (m *Metrics) RecordFrame(ctx context.Context, handPresent bool, d time.Duration) {
	hand := "false"
	if handPresent {
		hand = "true"
	}
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.String("hand", hand)))
	m.FrameDuration.Record(ctx, d.Seconds())
}

// RecordLetter records a validated letter.
func (m *Metrics) RecordLetter(ctx context.Context, letter string) {
	m.Letters.Add(ctx, 1, metric.WithAttributes(attribute.String("letter", letter)))
}

// RecordSpeech records a finished speech job. A non-empty reason marks it
// as failed.
func (m *Metrics) RecordSpeech(ctx context.Context, d time.Duration, reason string) {
	if d > 0 {
		m.SpeechDuration.Record(ctx, d.Seconds())
	}
	if reason != "" {
		m.SpeechErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordPrediction counts one classifier output.
func (m *Metrics) RecordPrediction(ctx context.Context) {
	m.Predictions.Add(ctx, 1)
}

// RecordClassifyError counts a frame the classifier could not label.
func (m *Metrics) RecordClassifyError(ctx context.Context) {
	m.ClassifyErrors.Add(ctx, 1)
}
