package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/bazaar/internal/client/cli"
	"github.com/dmitrijs2005/bazaar/internal/client/config"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]

	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}

	log, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "startup failed", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn(ctx, "shutdown", "error", err)
		}
	}()

	return app.Execute(ctx, args)
}
