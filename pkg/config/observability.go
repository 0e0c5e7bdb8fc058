package config

import "fmt"

const (
	TracingExporterOTLP   = "otlp"
	TracingExporterStdout = "stdout"

	DefaultServiceName  = "debater"
	DefaultOTLPEndpoint = "localhost:4317"
)

// ObservabilityConfig configures metrics and tracing.
//
// Example:
//
//	observability:
//	  metrics:
//	    enabled: true
//	  tracing:
//	    enabled: true
//	    exporter: otlp
//	    endpoint: localhost:4317
type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name,omitempty" json:"service_name,omitempty" jsonschema:"default=debater"`
	Metrics     MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing     TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes /metrics. Nil means enabled.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"default=true"`
}

// IsEnabled reports whether metrics are on.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Exporter is otlp (gRPC) or stdout.
	Exporter string `yaml:"exporter,omitempty" json:"exporter,omitempty" jsonschema:"enum=otlp,enum=stdout,default=otlp"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" jsonschema:"default=localhost:4317"`

	// Insecure disables TLS to the collector.
	Insecure *bool `yaml:"insecure,omitempty" json:"insecure,omitempty" jsonschema:"default=true"`

	// SamplingRate is the fraction of traces kept (0..1).
	SamplingRate float64 `yaml:"sampling_rate,omitempty" json:"sampling_rate,omitempty" jsonschema:"minimum=0,maximum=1,default=1"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = TracingExporterOTLP
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = DefaultOTLPEndpoint
	}
	if c.Tracing.Insecure == nil {
		insecure := true
		c.Tracing.Insecure = &insecure
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
}

func (c *ObservabilityConfig) Validate() error {
	switch c.Tracing.Exporter {
	case TracingExporterOTLP, TracingExporterStdout:
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be within [0, 1]")
	}
	return nil
}
