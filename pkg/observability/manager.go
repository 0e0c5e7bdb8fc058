package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/debater/pkg/config"
)

// Manager owns the process's metrics and tracing providers.
type Manager struct {
	metrics        *Metrics
	tracerProvider *sdktrace.TracerProvider
}

// ManagerOption configures NewManager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	spanOut io.Writer
}

// WithSpanWriter sets where the stdout span exporter writes.
func WithSpanWriter(w io.Writer) ManagerOption {
	return func(o *managerOptions) { o.spanOut = w }
}

// NewManager initializes whatever cfg enables. Disabled parts stay nil and
// their accessors return no-op values.
func NewManager(ctx context.Context, cfg config.ObservabilityConfig, version string, opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{spanOut: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{}
	if cfg.Metrics.IsEnabled() {
		metrics, err := NewMetrics()
		if err != nil {
			return nil, err
		}
		m.metrics = metrics
	}

	tp, err := NewTracerProvider(ctx, cfg, version, o.spanOut)
	if err != nil {
		return nil, errors.Join(err, m.metrics.Shutdown(ctx))
	}
	m.tracerProvider = tp
	return m, nil
}

// Metrics returns the recorder, or nil when metrics are disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsEnabled reports whether /metrics should be served.
func (m *Manager) MetricsEnabled() bool {
	return m.Metrics() != nil
}

// MetricsHandler serves the Prometheus endpoint.
func (m *Manager) MetricsHandler() http.Handler {
	return m.Metrics().Handler()
}

// Tracer returns a named tracer from the configured provider, or from the
// global one when tracing is disabled.
func (m *Manager) Tracer(name string) trace.Tracer {
	if m == nil || m.tracerProvider == nil {
		return otel.Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Shutdown flushes pending spans and metrics.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.tracerProvider != nil {
		errs = append(errs, m.tracerProvider.Shutdown(ctx))
	}
	errs = append(errs, m.metrics.Shutdown(ctx))
	return errors.Join(errs...)
}
