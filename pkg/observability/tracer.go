// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/kadirpekel/debater/pkg/config"
)

// NewTracerProvider installs a global tracer provider built from cfg and
// returns it. With tracing disabled it returns nil and the global no-op
// provider stays in place.
//
// out receives spans when the stdout exporter is selected.
func NewTracerProvider(ctx context.Context, cfg config.ObservabilityConfig, version string, out io.Writer) (*sdktrace.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}

	exporter, err := spanExporter(ctx, cfg.Tracing, out)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter %q: %w", cfg.Tracing.Exporter, err)
	}
	res, err := serviceResource(ctx, cfg.ServiceName, version)
	if err != nil {
		return nil, shutdownOnError(ctx, err, exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.Tracing.SamplingRate)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// sampler keeps the parent's decision and samples new roots at rate.
func sampler(rate float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(rate)
	if rate >= 1 {
		root = sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(root)
}

// serviceResource carries no schema URL so it merges with the SDK's
// detectors whatever semconv version they use.
func serviceResource(ctx context.Context, name, version string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
		),
	)
}

func spanExporter(ctx context.Context, cfg config.TracingConfig, out io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case config.TracingExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	case config.TracingExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure == nil || *cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unsupported exporter")
}

func shutdownOnError(ctx context.Context, err error, exporter sdktrace.SpanExporter) error {
	if serr := exporter.Shutdown(ctx); serr != nil {
		return fmt.Errorf("%w (exporter shutdown: %v)", err, serr)
	}
	return err
}
