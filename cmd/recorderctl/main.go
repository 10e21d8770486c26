package main

import (
	"fmt"
	"os"

	"github.com/johnquangdev/meeting-recorder/internal/adapter/repository"
	"github.com/johnquangdev/meeting-recorder/internal/cli"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
	"github.com/johnquangdev/meeting-recorder/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer zl.Sync()

	deps := &cli.Dependencies{
		Config: cfg,
		Logger: zl,
		Store:  repository.NewSessionRepository(),
	}

	if cfg.Database.Enabled {
		db, err := database.NewDB(cfg)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.CloseDB(db)
		deps.Meetings = repository.NewMeetingRepository(db)
	}

	return cli.NewRootCmd(deps).Execute()
}
