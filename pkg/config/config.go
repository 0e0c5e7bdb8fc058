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

// Package config loads debater's process configuration.
//
// Configuration comes from an optional YAML file with ${VAR} and
// ${VAR:-default} expansion, .env files, and plain environment variables
// when no file is given. Every section follows the same
// SetDefaults/Validate contract.
package config

import (
	"errors"
	"fmt"
)

// Config is the root configuration.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server,description=HTTP API settings"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger"`

	// Generation bounds every backend call.
	Generation GenerationConfig `yaml:"generation,omitempty" json:"generation,omitempty" jsonschema:"title=Generation"`

	// Providers holds backend credentials and endpoints.
	Providers ProvidersConfig `yaml:"providers,omitempty" json:"providers,omitempty" jsonschema:"title=Providers"`

	// Observability configures metrics and tracing.
	Observability ObservabilityConfig `yaml:"observability,omitempty" json:"observability,omitempty" jsonschema:"title=Observability"`
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	c.Generation.SetDefaults()
	c.Providers.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"server", &c.Server},
		{"logger", &c.Logger},
		{"generation", &c.Generation},
		{"providers", &c.Providers},
		{"observability", &c.Observability},
	}

	var errs []error
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
