// Package main implements the entry point for the PulseWeave gateway, which
// accepts transcript analysis tasks over websocket and HTTP, ingests ASR
// output from a watched directory and runs every task through the
// configured inference provider.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/platform/logger"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pulseweave: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, wires the application and serves until SIGINT or SIGTERM
func run(args []string) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return err
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"provider", cfg.Provider.Name,
		"require_auth", cfg.Auth.RequireAuth)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, log, afero.NewOsFs())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("pulseweave", pflag.ContinueOnError)
	flags.String("config", "", "path to a YAML configuration file")
	flags.Int("port", 0, "HTTP listen port")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	return flags
}
