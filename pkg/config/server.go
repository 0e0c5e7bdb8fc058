package config

import (
	"fmt"
	"net"
	"strconv"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// DefaultCORSOrigins are the dev server origins allowed out of the box.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// ServerConfig configures the HTTP API.
//
// Example:
//
//	server:
//	  host: 0.0.0.0
//	  port: 8000
//	  cors_origins: [http://localhost:5173]
//	  rate_limit:
//	    requests_per_second: 10
//	    burst: 20
type ServerConfig struct {
	// Host to bind (default: 0.0.0.0).
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"default=0.0.0.0"`

	// Port to bind (default: 8000).
	Port int `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535,default=8000"`

	// Debug enables debug logging and verbose HTTP errors.
	Debug bool `yaml:"debug,omitempty" json:"debug,omitempty"`

	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty"`

	// RateLimit throttles API requests per client address.
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// RateLimitConfig configures per-client token buckets.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty" jsonschema:"minimum=0"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty" jsonschema:"minimum=0"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = append([]string(nil), DefaultCORSOrigins...)
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = int(c.RateLimit.RequestsPerSecond*2) + 1
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}

// Address returns host:port.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
