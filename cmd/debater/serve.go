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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/debater"
	"github.com/kadirpekel/debater/pkg/config"
	"github.com/kadirpekel/debater/pkg/debate"
	"github.com/kadirpekel/debater/pkg/observability"
	"github.com/kadirpekel/debater/pkg/provider"
	"github.com/kadirpekel/debater/pkg/server"
)

const tracerName = "github.com/kadirpekel/debater"

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Host  string `help:"Host to bind (overrides config)."`
	Port  int    `help:"Port to listen on (overrides config)."`
	Watch bool   `help:"Reload logger settings when the config file changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := initLoggerFromConfig(cli, &cfg.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeLog != nil {
			closeLog()
		}
	}()

	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	obs, err := observability.NewManager(ctx, cfg.Observability, debater.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
	}()

	providers := provider.NewFromConfig(cfg)
	store := debate.NewStore(providers,
		debate.WithRecorder(obs.Metrics()),
		debate.WithTracer(obs.Tracer(tracerName)),
	)
	srv := server.New(cfg.Server, store, providers, server.WithObservability(obs))

	fmt.Printf("\nDebater API ready on http://%s\n", srv.Address())
	fmt.Printf("   Health:    http://%s/health\n", srv.Address())
	fmt.Printf("   Providers: %v\n", providers.IDs())
	if obs.MetricsEnabled() {
		fmt.Printf("   Metrics:   http://%s/metrics\n", srv.Address())
	}
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if c.Watch && cli.Config != "" {
		g.Go(func() error {
			err := config.Watch(gctx, cli.Config, func(next *config.Config) {
				reopened, err := initLoggerFromConfig(cli, &next.Logger)
				if err != nil {
					slog.Warn("Logger reload failed", "error", err)
					return
				}
				if closeLog != nil {
					closeLog()
				}
				closeLog = reopened
				slog.Info("Configuration reloaded", "log_level", next.Logger.Level)
			})
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
