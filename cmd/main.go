package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"idmigrate/internal/remote"
	"idmigrate/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	if err := config.LoadEnv(); err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	gateway := remote.NewClient(config.Remote.BaseURL, config.Remote.Token, nil)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Gateway: gateway,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "idmigrate",
		Usage:    "Import legacy user & organization records into the identity service",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
