package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hacksprint/hacksprint/internal/app"
	"github.com/hacksprint/hacksprint/internal/config"
	"github.com/hacksprint/hacksprint/internal/platform"
	"github.com/hacksprint/hacksprint/internal/auth"
	"github.com/hacksprint/hacksprint/pkg/adminkey"
)

func main() {
	mode := flag.String("mode", "serve", "run mode: serve or seed-admin-key")
	label := flag.String("label", "", "label for a newly minted admin key (seed-admin-key mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "serve":
		if err := app.Run(ctx, cfg); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "seed-admin-key":
		if err := seedAdminKey(ctx, cfg, *label); err != nil {
			fmt.Fprintf(os.Stderr, "error: seeding admin key: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unknown mode %q\n", *mode)
		os.Exit(1)
	}
}

// seedAdminKey mints a new admin bearer key, persists its hash, and prints
// the raw key once. There is no HTTP endpoint for this on purpose.
func seedAdminKey(ctx context.Context, cfg *config.Config, label string) error {
	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	generated, err := auth.GenerateAdminKey()
	if err != nil {
		return fmt.Errorf("generating admin key: %w", err)
	}

	store := adminkey.NewStore(db)
	id, err := store.Create(ctx, generated.Prefix, generated.Hash, label)
	if err != nil {
		return fmt.Errorf("persisting admin key: %w", err)
	}

	fmt.Printf("admin key id:     %s\n", id)
	fmt.Printf("admin key (save, shown once): %s\n", generated.Raw)
	return nil
}
