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

// Command debater runs AI debates from the terminal or serves them over HTTP.
//
// Usage:
//
//	debater serve --config debater.yaml
//	debater run --topic "Remote work" --a openai:gpt-4o-mini:"For" --b ollama:llama3.2:"Against"
//	debater providers
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/debater"
	"github.com/kadirpekel/debater/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version   VersionCmd   `cmd:"" help:"Show version information."`
	Serve     ServeCmd     `cmd:"" help:"Start the debate API server."`
	Run       RunCmd       `cmd:"" help:"Run a debate in the terminal."`
	Providers ProvidersCmd `cmd:"" help:"List providers and their availability."`
	Validate  ValidateCmd  `cmd:"" help:"Validate a configuration file."`
	Schema    SchemaCmd    `cmd:"" help:"Generate JSON Schema for configuration."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(debater.GetVersion())
	return nil
}

// loadConfig reads .env files next to path, then the config itself.
func (cli *CLI) loadConfig() (*config.Config, error) {
	if cli.Config == "" {
		config.LoadDotEnv()
	} else {
		config.LoadDotEnvForConfig(cli.Config)
	}
	return config.Load(cli.Config)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("debater"),
		kong.Description("Two language models argue a topic, turn by turn."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	_, _, _, cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}
