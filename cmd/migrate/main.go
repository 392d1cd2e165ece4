package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

var (
	cfg struct {
		Direction string `arg:"" optional:"" help:"Migration direction" enum:"up,down" default:"up"`
		Dir       string `help:"Migration source" default:"file://migrations" env:"RAG_MIGRATIONS"`
		Location  string `help:"Address of the postgres database" default:"" env:"RAG_DOCUMENT_LOCATION"`
		Steps     int    `help:"Number of migrations to apply, zero for all" default:"0"`
	}
)

func main() {
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	ctx := context.Background()

	if err := run(cfg.Dir, cfg.Location, cfg.Direction, cfg.Steps); err != nil {
		slog.ErrorContext(ctx, "failed to migrate", "direction", cfg.Direction, "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "migrated", "direction", cfg.Direction)
}

func run(dir string, location string, direction string, steps int) error {
	if len(location) == 0 {
		return errors.New("database location is required")
	}

	m, err := migrate.New(dir, location)
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction: %s", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}

	return err
}
