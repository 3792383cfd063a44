package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/logger"
	"github.com/paysync/paysync/internal/postgres"
	"github.com/paysync/paysync/migrations"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		logger.Fatalw("Failed to read embedded migrations", "error", err)
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if *dryRun {
		logger.Info("Dry run mode - printing migration SQL without executing")
		for _, name := range files {
			sqlBytes, err := migrations.FS.ReadFile(name)
			if err != nil {
				logger.Fatalw("Failed to read migration", "file", name, "error", err)
			}
			fmt.Printf("-- %s\n%s\n", name, sqlBytes)
		}
		return
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)

	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Running database migrations...")
	for _, name := range files {
		sqlBytes, err := migrations.FS.ReadFile(name)
		if err != nil {
			logger.Fatalw("Failed to read migration", "file", name, "error", err)
		}
		// Each file is applied atomically; a failing statement rolls the
		// whole file back instead of leaving it half-applied.
		err = db.WithTx(ctx, func(ctx context.Context) error {
			_, execErr := db.GetQuerier(ctx).ExecContext(ctx, string(sqlBytes))
			return execErr
		})
		if err != nil {
			logger.Fatalw("Failed to apply migration", "file", name, "error", err)
		}
		logger.Infow("Applied migration", "file", name)
	}

	logger.Info("Migration completed successfully")
}
