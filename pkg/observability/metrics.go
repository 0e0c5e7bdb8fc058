package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records debate and HTTP measurements through an OpenTelemetry
// meter exported to a private Prometheus registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	debatesStarted     metric.Int64Counter
	debatesCompleted   metric.Int64Counter
	debatesActive      metric.Int64UpDownCounter
	turnsCompleted     metric.Int64Counter
	generationErrors   metric.Int64Counter
	generationDuration metric.Float64Histogram
	httpRequests       metric.Int64Counter
	httpDuration       metric.Float64Histogram
}

// NewMetrics creates the instruments and their Prometheus registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	m := &Metrics{registry: reg, provider: provider}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.debatesStarted, MetricDebatesStarted, "Debates started"},
		{&m.debatesCompleted, MetricDebatesCompleted, "Debates completed"},
		{&m.turnsCompleted, MetricTurnsCompleted, "Turns recorded"},
		{&m.generationErrors, MetricGenerationErrors, "Failed generation calls"},
		{&m.httpRequests, MetricHTTPRequests, "HTTP requests served"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	if m.debatesActive, err = meter.Int64UpDownCounter(MetricDebatesActive,
		metric.WithDescription("Debates started and not yet completed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active debates gauge: %w", err)
	}

	if m.generationDuration, err = meter.Float64Histogram(MetricGenerationDuration,
		metric.WithDescription("Duration of one generated turn"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}

	if m.httpDuration, err = meter.Float64Histogram(MetricHTTPDuration,
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return m, nil
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) DebateStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.debatesStarted.Add(ctx, 1)
	m.debatesActive.Add(ctx, 1)
}

func (m *Metrics) DebateCompleted(ctx context.Context, _ int) {
	if m == nil {
		return
	}
	m.debatesCompleted.Add(ctx, 1)
	m.debatesActive.Add(ctx, -1)
}

func (m *Metrics) TurnGenerated(ctx context.Context, provider, model string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrLLMProvider, provider),
		attribute.String(AttrLLMModel, model),
	)
	m.generationDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.generationErrors.Add(ctx, 1, attrs)
		return
	}
	m.turnsCompleted.Add(ctx, 1, attrs)
}

// RecordHTTPRequest counts one served request. route should be the matched
// pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.String(AttrHTTPStatusCode, strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, elapsed.Seconds(), attrs)
}
