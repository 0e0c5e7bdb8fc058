package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads the config file at path, or builds one from the environment
// when path is empty.
//
// Pipeline: read, parse YAML, expand ${VAR}, decode with
// mapstructure, fill from env, SetDefaults, Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		return FromEnv()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse runs the load pipeline on raw bytes. JSON input parses as YAML.
func Parse(data []byte) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &Config{}
	if err := decode(expand(doc), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return finish(cfg)
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decode maps the expanded document onto cfg by yaml tag. Unknown keys
// are errors.
func decode(doc any, cfg *Config) error {
	if doc == nil {
		return nil
	}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return d.Decode(doc)
}
