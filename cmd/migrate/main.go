package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/orderflow-backend/pkg/config"
	"github.com/angelmondragon/orderflow-backend/pkg/db"
	"github.com/angelmondragon/orderflow-backend/pkg/logger"
	"github.com/angelmondragon/orderflow-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory for create and validate")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd})

	// authoring commands work on the source tree and need neither config nor a database
	switch *cmd {
	case "create":
		if *name == "" {
			fail(ctx, logg, "missing -name for create", nil)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail(ctx, logg, "create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.Validate(os.DirFS(*dir)); err != nil {
			fail(ctx, logg, "migration validation failed", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(ctx, logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "env": cfg.App.Env})

	if cfg.DB.Driver == db.DriverSQLite {
		fail(ctx, logg, "goose migrations target postgres; sqlite is migrated from models at startup", nil)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "connect database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, "sql handle", err)
	}

	switch *cmd {
	case "up":
		applied, err := migrate.Up(ctx, sqlDB)
		if err != nil {
			fail(ctx, logg, "migrate up", err)
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")

	case "down":
		reverted, err := migrate.Down(ctx, sqlDB)
		if err != nil {
			fail(ctx, logg, "migrate down", err)
		}
		logg.Info(logg.WithField(ctx, "reverted", reverted), "migration rolled back")

	case "status":
		statuses, err := migrate.Status(ctx, sqlDB)
		if err != nil {
			fail(ctx, logg, "migration status", err)
		}
		for _, status := range statuses {
			applied := "pending"
			if !status.AppliedAt.IsZero() {
				applied = status.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-20s %-10s %s\n", applied, status.State, status.Source.Path)
		}

	case "version":
		target, err := strconv.ParseInt(*version, 10, 64)
		if err != nil {
			fail(ctx, logg, "invalid -version (expected YYYYMMDDHHMMSS)", err)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, target); err != nil {
			fail(ctx, logg, "migrate to version", err)
		}
		logg.Info(logg.WithField(ctx, "version", target), "schema at version")

	default:
		fail(ctx, logg, fmt.Sprintf("unknown -cmd value %q", *cmd), nil)
	}
}

func fail(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		err = fmt.Errorf("%s", msg)
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
