package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/database"
)

// migrator is the part of database.Migrator the command drives
type migrator interface {
	Up(steps int) error
	Down(steps int) error
	Version() (uint, bool, error)
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		action     = flag.String("action", "up", "Migration action: up, down, version")
		steps      = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, *action, *steps); err != nil {
		slog.Error("migration failed", "action", *action, "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, action string, steps int) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := database.NewMigrator(db, logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()

	return runAction(m, action, steps, os.Stdout)
}

func runAction(m migrator, action string, steps int, out io.Writer) error {
	switch action {
	case "up":
		return m.Up(steps)
	case "down":
		if steps <= 0 {
			return fmt.Errorf("down requires -steps > 0; refusing to revert every migration")
		}
		return m.Down(steps)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("failed to read version: %w", err)
		}
		_, err = fmt.Fprintf(out, "version: %d dirty: %t\n", v, dirty)
		return err
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}
