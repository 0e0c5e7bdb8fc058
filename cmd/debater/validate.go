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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/debater/pkg/config"
	"github.com/kadirpekel/debater/pkg/debate"
)

// ValidateCmd validates a process config file, or a debate config with
// --debate.
type ValidateCmd struct {
	Path        string `arg:"" name:"path" help:"File to validate." placeholder:"PATH" type:"existingfile"`
	Debate      bool   `help:"Validate a debate config (JSON) instead of a process config."`
	Format      string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`
}

// validationResult is the --format=json output.
type validationResult struct {
	Valid  bool     `json:"valid"`
	File   string   `json:"file"`
	Errors []string `json:"errors,omitempty"`
}

func (c *ValidateCmd) Run() error {
	expanded, err := c.load()
	if err != nil {
		return c.printFailure(err)
	}
	if c.PrintConfig {
		return c.printExpanded(expanded)
	}
	c.printSuccess()
	return nil
}

func (c *ValidateCmd) load() (any, error) {
	if c.Debate {
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return nil, err
		}
		var cfg debate.Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse debate config: %w", err)
		}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	config.LoadDotEnvForConfig(c.Path)
	return config.Load(c.Path)
}

func (c *ValidateCmd) printFailure(err error) error {
	switch c.Format {
	case "json":
		printJSONResult(validationResult{File: c.Path, Errors: []string{err.Error()}})
	case "verbose":
		fmt.Fprintf(os.Stderr, "Configuration %s is invalid:\n  %v\n", c.Path, err)
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", c.Path, err)
	}
	return fmt.Errorf("validation failed")
}

func (c *ValidateCmd) printSuccess() {
	switch c.Format {
	case "json":
		printJSONResult(validationResult{Valid: true, File: c.Path})
	case "verbose":
		fmt.Printf("Configuration %s is valid.\n", c.Path)
	default:
		fmt.Printf("%s: ok\n", c.Path)
	}
}

func (c *ValidateCmd) printExpanded(cfg any) error {
	if c.Format == "json" || c.Debate {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func printJSONResult(r validationResult) {
	data, _ := json.MarshalIndent(r, "", "  ")
	fmt.Println(string(data))
}
