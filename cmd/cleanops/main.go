package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/cleanops-client/internal/app"
	"github.com/noah-isme/cleanops-client/internal/cli"
	"github.com/noah-isme/cleanops-client/pkg/config"
	"github.com/noah-isme/cleanops-client/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to wire client", "error", err)
	}
	defer a.Close() //nolint:errcheck

	if err := cli.New(a, os.Stdout, os.Getenv).Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		_ = a.Close()
		_ = logr.Sync()
		os.Exit(1)
	}
}
