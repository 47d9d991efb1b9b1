package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/akeren/raine-waitlist/config"
	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/internal/models"
	"github.com/akeren/raine-waitlist/pkg/migrations"
	"github.com/akeren/raine-waitlist/pkg/utils"
)

type migrateCommand struct {
	direction string
	steps     int
}

func parseMigrateArgs(args []string) (migrateCommand, error) {
	cmd := migrateCommand{direction: "up", steps: 1}

	if len(args) == 0 {
		return cmd, nil
	}

	switch args[0] {
	case "up":
		if len(args) > 1 {
			return cmd, fmt.Errorf("migrate up takes no arguments")
		}
	case "status":
		cmd.direction = "status"
		if len(args) > 1 {
			return cmd, fmt.Errorf("migrate status takes no arguments")
		}
	case "down":
		cmd.direction = "down"
		if len(args) > 1 {
			steps, err := strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				return cmd, fmt.Errorf("invalid step count %q: must be a positive integer", args[1])
			}
			cmd.steps = steps
		}
	default:
		return cmd, fmt.Errorf("unknown migrate direction %q (allowed: up, down, status)", args[0])
	}

	return cmd, nil
}

func runMigrate(logger *log.Logger, out io.Writer, args []string) error {
	cmd, err := parseMigrateArgs(args)
	if err != nil {
		return err
	}

	dbCfg := config.NewDBConfigFromEnv()
	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	// The SQL files target PostgreSQL; SQLite databases are local-only and use the model schema.
	if dbCfg.Driver == config.DriverSQLite {
		if cmd.direction != "up" {
			return fmt.Errorf("migrate %s is not supported for DB_DRIVER=sqlite", cmd.direction)
		}
		return config.AutoMigrate(logger, db, models.ModelRegistry...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}

	migrationsDir := utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations")
	migrationCfg := migrations.Config{Dir: migrationsDir, Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd.direction {
	case "status":
		status, err := migrations.Version(ctx, sqlDB, migrationCfg)
		if err != nil {
			return err
		}
		renderMigrationStatus(out, status)
		return nil
	case "down":
		err = migrations.Down(ctx, sqlDB, migrationCfg, cmd.steps)
	default:
		err = migrations.Up(ctx, sqlDB, migrationCfg)
	}
	if err != nil {
		return err
	}

	logger.Info("Database migrations completed", "direction", cmd.direction)
	return nil
}

func renderMigrationStatus(out io.Writer, status migrations.Status) {
	switch {
	case status.Pristine:
		fmt.Fprintln(out, "schema: no migrations applied")
	case status.Dirty:
		fmt.Fprintf(out, "schema: version %d (dirty; fix the failed migration and force the version)\n", status.Version)
	default:
		fmt.Fprintf(out, "schema: version %d\n", status.Version)
	}
}
