package config

import (
	"fmt"

	"github.com/kadirpekel/debater/pkg/logger"
)

// LoggerConfig configures logging behavior.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-file, --log-format)
//  2. Environment variables (LOG_LEVEL, LOG_FILE, LOG_FORMAT)
//  3. Config file (logger section)
//  4. Defaults (info level, simple format, stderr)
type LoggerConfig struct {
	// Level specifies the log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// File specifies the log file path. Empty means stderr.
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Format is simple, verbose, or json.
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"enum=simple,enum=verbose,enum=json,default=simple"`
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = logger.FormatSimple
	}
}

func (c *LoggerConfig) Validate() error {
	if _, err := logger.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
	}
	if !logger.ValidFormat(c.Format) {
		return fmt.Errorf("invalid log format %q (valid: simple, verbose, json)", c.Format)
	}
	return nil
}
