package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere adds up counter data points whose attribute key equals value.
func sumWhere(t *testing.T, met *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", met.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, true, 5*time.Millisecond)
	m.RecordFrame(ctx, true, 7*time.Millisecond)
	m.RecordFrame(ctx, false, time.Millisecond)

	rm := collect(t, reader)

	frames := findMetric(rm, "datilo.frames")
	if frames == nil {
		t.Fatal("datilo.frames not found")
	}
	if got := sumWhere(t, frames, "hand", "true"); got != 2 {
		t.Errorf("frames with hand = %d, want 2", got)
	}
	if got := sumWhere(t, frames, "hand", "false"); got != 1 {
		t.Errorf("frames without hand = %d, want 1", got)
	}

	dur := findMetric(rm, "datilo.frame.duration")
	if dur == nil {
		t.Fatal("datilo.frame.duration not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("frame duration is not a histogram")
	}
	if hist.DataPoints[0].Count != 3 {
		t.Errorf("histogram count = %d, want 3", hist.DataPoints[0].Count)
	}
}

func TestRecordLetter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordLetter(ctx, "A")
	m.RecordLetter(ctx, "A")
	m.RecordLetter(ctx, "B")

	letters := findMetric(collect(t, reader), "datilo.letters")
	if letters == nil {
		t.Fatal("datilo.letters not found")
	}
	if got := sumWhere(t, letters, "letter", "A"); got != 2 {
		t.Errorf("A count = %d, want 2", got)
	}
}

func TestRecordSpeech(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSpeech(ctx, 2*time.Second, "")
	m.RecordSpeech(ctx, 30*time.Second, "timeout")
	m.RecordSpeech(ctx, 0, "queue_full")

	rm := collect(t, reader)

	errs := findMetric(rm, "datilo.speech.errors")
	if errs == nil {
		t.Fatal("datilo.speech.errors not found")
	}
	if got := sumWhere(t, errs, "reason", "timeout"); got != 1 {
		t.Errorf("timeout errors = %d, want 1", got)
	}
	if got := sumWhere(t, errs, "reason", "queue_full"); got != 1 {
		t.Errorf("queue_full errors = %d, want 1", got)
	}

	dur := findMetric(rm, "datilo.speech.duration")
	if dur == nil {
		t.Fatal("datilo.speech.duration not found")
	}
	if hist := dur.Data.(metricdata.Histogram[float64]); hist.DataPoints[0].Count != 2 {
		t.Errorf("speech duration count = %d, want 2", hist.DataPoints[0].Count)
	}
}

func TestMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	met := findMetric(collect(t, reader), "datilo.http.request.duration")
	if met == nil {
		t.Fatal("http duration metric not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("unexpected data points: %+v", hist.DataPoints)
	}
}

func TestInitProvider(t *testing.T) {
	p, err := InitProvider(context.Background(), ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordLetter(context.Background(), "Z")

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "datilo_letters") {
		t.Errorf("scrape output missing datilo_letters:\n%s", body)
	}
}
