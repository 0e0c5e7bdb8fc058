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
	"fmt"
	"io"
	"os"

	"github.com/kadirpekel/debater/pkg/config"
	"github.com/kadirpekel/debater/pkg/logger"
)

const (
	LogFileEnvVar    = "LOG_FILE"
	LogLevelEnvVar   = "LOG_LEVEL"
	LogFormatEnvVar  = "LOG_FORMAT"
	DefaultLogFormat = logger.FormatSimple
)

// initLoggerFromCLI initializes the logger from CLI flags and environment variables.
// Priority: CLI flags > env vars > defaults
// Returns: level string, file string, format string, cleanup function, error
func initLoggerFromCLI(cliLogLevel, cliLogFile, cliLogFormat string) (string, string, string, func(), error) {
	logLevel := firstNonEmpty(cliLogLevel, os.Getenv(LogLevelEnvVar), "info")
	logFile := firstNonEmpty(cliLogFile, os.Getenv(LogFileEnvVar))
	logFormat := firstNonEmpty(cliLogFormat, os.Getenv(LogFormatEnvVar), DefaultLogFormat)

	cleanup, err := applyLogger(logLevel, logFile, logFormat)
	if err != nil {
		return "", "", "", nil, err
	}
	return logLevel, logFile, logFormat, cleanup, nil
}

// initLoggerFromConfig re-initializes the logger from the config file's
// logger section. Values given on the command line or in the environment
// still win.
func initLoggerFromConfig(cli *CLI, cfg *config.LoggerConfig) (func(), error) {
	if cfg == nil {
		return nil, nil
	}
	return applyLogger(
		firstNonEmpty(cli.LogLevel, os.Getenv(LogLevelEnvVar), cfg.Level, "info"),
		firstNonEmpty(cli.LogFile, os.Getenv(LogFileEnvVar), cfg.File),
		firstNonEmpty(cli.LogFormat, os.Getenv(LogFormatEnvVar), cfg.Format, DefaultLogFormat),
	)
}

func applyLogger(logLevel, logFile, logFormat string) (func(), error) {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if !logger.ValidFormat(logFormat) {
		return nil, fmt.Errorf("invalid log format %q (valid: simple, verbose, json)", logFormat)
	}

	var output io.Writer = os.Stderr
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, logFormat)
	return cleanup, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
