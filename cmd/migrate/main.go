package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
)

func main() {
	down := flag.Int("down", 0, "Roll back this many migrations instead of applying pending ones")
	source := flag.String("source", "", "Migration source, defaults to postgres.migrations_path")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	src := *source
	if src == "" {
		src = cfg.Postgres.MigrationsPath
	}

	if *down > 0 {
		logger.Infow("Rolling back migrations", "steps", *down, "source", src)
		if err := db.MigrateDown(src, *down); err != nil {
			logger.Fatalw("Failed to roll back migrations", "error", err)
		}
	} else {
		logger.Infow("Running database migrations", "source", src)
		if err := db.Migrate(src); err != nil {
			logger.Fatalw("Failed to apply migrations", "error", err)
		}
	}

	fmt.Println("Migration process completed")
}
