// Package observability provides OpenTelemetry metrics (Prometheus exporter)
// and the slog handler that stitches trace context into log records.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/clipiq/feed/internal/observability"
	defaultServiceName = "clipiq-feed"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for request and generator duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// FeedMetrics is the single metrics interface for the feed engine
// (HTTP, candidate generation, impressions, caches).
type FeedMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordGenerator(ctx context.Context, source string, candidates int, duration time.Duration)
	RecordGeneratorDegraded(ctx context.Context, source string)
	RecordImpressionsWritten(ctx context.Context, modelVersion string, count int)
	RecordCacheLookup(ctx context.Context, cacheName string, hit bool)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: clipiq-feed).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and FeedMetrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics FeedMetrics, err error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// Use a single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: "http.server.duration"},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: "feed_generator_duration_seconds"},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
		),
	)
	provider = mp
	meter := mp.Meter(meterScope)

	metrics, err = newMetricsFromMeter(meter)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, metricsHandler, metrics, nil
}

func newMetricsFromMeter(meter metric.Meter) (*feedMetricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		"http.server.request_count",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("request_count: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("http.server.duration: %w", err)
	}

	generatorCandidates, err := meter.Int64Counter(
		"feed_generator_candidates_total",
		metric.WithDescription("Candidates produced per generator source"),
	)
	if err != nil {
		return nil, fmt.Errorf("feed_generator_candidates_total: %w", err)
	}

	generatorDuration, err := meter.Float64Histogram(
		"feed_generator_duration_seconds",
		metric.WithDescription("Candidate generator duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("feed_generator_duration_seconds: %w", err)
	}

	generatorDegraded, err := meter.Int64Counter(
		"feed_generator_degraded_total",
		metric.WithDescription("Generator runs that degraded to an empty candidate list"),
	)
	if err != nil {
		return nil, fmt.Errorf("feed_generator_degraded_total: %w", err)
	}

	impressionsWritten, err := meter.Int64Counter(
		"feed_impressions_written_total",
		metric.WithDescription("Impressions written per model version"),
	)
	if err != nil {
		return nil, fmt.Errorf("feed_impressions_written_total: %w", err)
	}

	cacheLookups, err := meter.Int64Counter(
		"feed_cache_lookups_total",
		metric.WithDescription("Cache lookups by cache name and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("feed_cache_lookups_total: %w", err)
	}

	return &feedMetricsImpl{
		requestCount:        requestCount,
		requestDuration:     requestDuration,
		generatorCandidates: generatorCandidates,
		generatorDuration:   generatorDuration,
		generatorDegraded:   generatorDegraded,
		impressionsWritten:  impressionsWritten,
		cacheLookups:        cacheLookups,
	}, nil
}

type feedMetricsImpl struct {
	requestCount        metric.Int64Counter
	requestDuration     metric.Float64Histogram
	generatorCandidates metric.Int64Counter
	generatorDuration   metric.Float64Histogram
	generatorDegraded   metric.Int64Counter
	impressionsWritten  metric.Int64Counter
	cacheLookups        metric.Int64Counter
}

func (m *feedMetricsImpl) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *feedMetricsImpl) RecordGenerator(ctx context.Context, source string, candidates int, duration time.Duration) {
	source = normalizeSource(source)
	m.generatorCandidates.Add(ctx, int64(candidates), metric.WithAttributes(attribute.String("source", source)))
	m.generatorDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("source", source)))
}

func (m *feedMetricsImpl) RecordGeneratorDegraded(ctx context.Context, source string) {
	source = normalizeSource(source)
	m.generatorDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *feedMetricsImpl) RecordImpressionsWritten(ctx context.Context, modelVersion string, count int) {
	m.impressionsWritten.Add(ctx, int64(count), metric.WithAttributes(attribute.String("model_version", modelVersion)))
}

func (m *feedMetricsImpl) RecordCacheLookup(ctx context.Context, cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cacheName),
		attribute.String("result", result),
	))
}

// normalizeSource maps candidate source to a bounded set for cardinality control.
func normalizeSource(s string) string {
	switch s {
	case "personal", "trending", "fresh":
		return s
	default:
		return "unknown"
	}
}
