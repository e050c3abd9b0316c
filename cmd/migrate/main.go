// Command migrate manages the database schema.
//
// Usage:
//
//	migrate -command=up
//	migrate -command=down
//	migrate -command=step -n=-1
//	migrate -command=version
//	migrate -command=force -n=3
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/resumeroast/backend/internal/infrastructure/config"
	"github.com/resumeroast/backend/internal/infrastructure/logger"
	"github.com/resumeroast/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

func main() {
	var (
		command        string
		migrationsPath string
		steps          int
		logLevel       string
	)
	flag.StringVar(&command, "command", "up", "migration command: up, down, step, version, force")
	flag.StringVar(&migrationsPath, "path", "migrations", "path to migration files")
	flag.IntVar(&steps, "n", 0, "number of steps (for step) or target version (for force)")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database connection", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer migrator.Close()

	switch command {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}
	case "step":
		if steps == 0 {
			log.Fatal("step requires a non-zero -n")
		}
		if err := migrator.Steps(steps); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty))
	case "force":
		if err := migrator.Force(steps); err != nil {
			log.Fatal("Force failed", zap.Error(err))
		}
		log.Info("Forced migration version", zap.Int("version", steps))
	default:
		log.Fatal("Unknown command", zap.String("command", command))
	}
}
