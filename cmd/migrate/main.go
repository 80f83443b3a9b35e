package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/aicost/backend/internal/infrastructure/config"
	"github.com/aicost/backend/internal/infrastructure/logger"
	"github.com/aicost/backend/internal/infrastructure/migration"
)

func main() {
	var (
		path  = flag.String("path", "migrations", "path to migration files")
		steps = flag.Int("steps", 0, "number of migrations to apply (negative rolls back)")
		force = flag.Int("force", -1, "force the schema version without running migrations")
	)
	flag.Usage = usage
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	m, err := migration.New(cfg.Database.DSN(), *path, log)
	if err != nil {
		log.Fatal("failed to initialize migrator", zap.Error(err))
	}
	defer m.Close() //nolint:errcheck

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(*steps)
	case "force":
		if *force < 0 {
			log.Fatal("force requires -force=<version>")
		}
		err = m.Force(*force)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = m.Version()
		if err == nil {
			log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [flags] <command>

Commands:
  up       apply all pending migrations
  down     roll back all migrations
  steps    apply -steps=N migrations (negative rolls back)
  version  print the current schema version
  force    force the schema version with -force=N

Flags:`)
	flag.PrintDefaults()
}
