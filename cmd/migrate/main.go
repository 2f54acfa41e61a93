package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ogurasousui/codex-company-registration/internal/platform/config"
	"github.com/ogurasousui/codex-company-registration/internal/platform/db/migration"
	"github.com/ogurasousui/codex-company-registration/internal/platform/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", migration.DefaultDir, "directory containing migration files")
	)
	flag.Parse()

	raw := "up"
	if flag.NArg() > 0 {
		raw = flag.Arg(0)
	}

	cfg, err := config.Load(config.EffectivePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	action, err := migration.ParseAction(raw)
	if err != nil {
		log.Fatal("invalid migration action", zap.Error(err))
	}

	if err := migration.Run(action, *migrationsDir, cfg.Database.DSN(), log); err != nil {
		log.Fatal("migration failed", zap.String("action", raw), zap.Error(err))
	}

	log.Info("migration completed", zap.String("action", raw))
}
