package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status]

import (
	"context"
	"fmt"
	"os"

	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		telemetry.Sync()
		os.Exit(1)
	}
	telemetry.Sync()
}

func run(ctx context.Context, args []string) error {
	command, err := parseCommand(args)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if err := telemetry.Configure(cfg.LogLevel); err != nil {
		return err
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	telemetry.Info("migrate.start", map[string]any{"command": command})
	switch command {
	case "down":
		return db.RollbackMigration(ctx, sqlDB)
	case "status":
		return db.MigrationStatus(ctx, sqlDB)
	default:
		return db.RunMigrations(ctx, sqlDB)
	}
}

func parseCommand(args []string) (string, error) {
	if len(args) == 0 {
		return "up", nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one command, got %d", len(args))
	}
	switch args[0] {
	case "up", "down", "status":
		return args[0], nil
	default:
		return "", fmt.Errorf("unknown command %q (want up, down or status)", args[0])
	}
}
