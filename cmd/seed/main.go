// Command seed fills a storage backend with demo accounts and chats.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"parley/internal/bootstrap"
	"parley/internal/config"
	"parley/internal/observability"
	"parley/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Env == "development" {
		observability.SetLevel(slog.LevelDebug)
	}
	if cfg.StorageBackend == "memory" {
		return fmt.Errorf("seeding a memory backend is pointless; use pebble or sqlite")
	}

	app, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	observability.GlobalLogger.Info("seeding", "backend", cfg.StorageBackend, "path", cfg.StoragePath)
	return seed.Run(context.Background(), app.Auth, app.Chats, app.UserRepo, seed.DefaultOptions())
}
