// Copyright 2026 Nodus AI
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

// Command agentpool serves a pool of A2A agents behind one HTTP listener.
//
// Usage:
//
//	agentpool serve --config agent_pool.json
//	agentpool serve --config agent_pool.json --watch
//	agentpool validate agent_pool.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/nodus-ai/agentpool/pkg/agents"
	"github.com/nodus-ai/agentpool/pkg/config"
	"github.com/nodus-ai/agentpool/pkg/loader"
	"github.com/nodus-ai/agentpool/pkg/pool"
	"github.com/nodus-ai/agentpool/pkg/transport"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the agent pool server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentpool version %s\n", version)
	return nil
}

// ServeCmd starts the pool server.
type ServeCmd struct {
	Addr  string `help:"Listen address." default:":8000"`
	Watch bool   `help:"Watch the config file and reload agents on change."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for serve")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	_ = config.LoadDotEnvForConfig(cli.Config)

	// The coordinator is built after the loader but the watch callback only
	// fires once Watch is running, well after assignment.
	var coordinator *pool.Coordinator
	cfgLoader, err := config.NewFileLoader(cli.Config, config.WithOnChange(func(*config.Config) {
		if _, err := coordinator.ReloadAll(ctx); err != nil {
			slog.Error("Reload after config change failed", "error", err)
		}
	}))
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer cfgLoader.Close()

	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slog.Info("Loaded configuration", "path", cli.Config, "pool", cfg.Pool.Name, "agents", len(cfg.Agents))

	factories := loader.NewRegistry()
	if err := agents.RegisterBuiltins(factories); err != nil {
		return fmt.Errorf("failed to register built-in agents: %w", err)
	}

	table := pool.NewTable()
	coordinator = pool.NewCoordinator(cfgLoader, loader.New(factories), table)
	health := pool.NewAggregator(table, 0)

	for name, result := range coordinator.MountAll(ctx, cfg) {
		if result.Status != pool.StatusLoaded {
			slog.Warn("Agent failed to mount", "agent", name, "error", result.Error)
		}
	}

	srv := transport.NewServer(transport.ServerConfig{
		Addr:     c.Addr,
		Identity: cfg.Pool,
	}, table, coordinator, health)

	// Config watching reuses the reload path so file edits and POST /reload
	// behave identically.
	if c.Watch {
		go func() {
			if err := cfgLoader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	fmt.Printf("\nAgent pool %q ready on %s\n", cfg.Pool.Name, srv.Addr())
	fmt.Printf("   Pool index:  http://localhost%s/\n", srv.Addr())
	fmt.Printf("   Agents:      http://localhost%s/agents\n", srv.Addr())
	fmt.Printf("   Health:      http://localhost%s/health\n", srv.Addr())
	fmt.Printf("   Metrics:     http://localhost%s/metrics\n", srv.Addr())
	for _, entry := range table.List() {
		fmt.Printf("     - http://localhost%s%s/a2a\n", srv.Addr(), entry.PathPrefix)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), pool.DefaultProbeTimeout)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentpool"),
		kong.Description("Agent pool manager - one endpoint, many A2A agents"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
