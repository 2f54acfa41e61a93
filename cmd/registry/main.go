package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ogurasousui/codex-company-registration/internal/adapters/cli"
	"github.com/ogurasousui/codex-company-registration/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-company-registration/internal/adapters/storage/gcs"
	"github.com/ogurasousui/codex-company-registration/internal/core/access"
	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	"github.com/ogurasousui/codex-company-registration/internal/core/registration"
	"github.com/ogurasousui/codex-company-registration/internal/core/user"
	"github.com/ogurasousui/codex-company-registration/internal/platform/config"
	pg "github.com/ogurasousui/codex-company-registration/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-company-registration/internal/platform/logger"
	"github.com/ogurasousui/codex-company-registration/internal/platform/metrics"
)

const metricsPushTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.EffectivePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return cli.ExitInternal
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return cli.ExitInternal
	}
	defer func() { _ = log.Sync() }()

	dbPool, err := pg.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to initialize database pool", zap.Error(err))
		return cli.ExitInternal
	}
	defer dbPool.Close()

	blobs, err := gcs.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to initialize blob store", zap.Error(err))
		return cli.ExitInternal
	}
	defer func() { _ = blobs.Close() }()

	m := metrics.New()
	defer pushMetrics(m, cfg.Metrics, log)

	tx := pg.NewTransactionManager(dbPool)
	companyRepo := postgres.NewCompanyRepository(dbPool)
	documentRepo := postgres.NewDocumentRepository(dbPool)
	userRepo := postgres.NewUserRepository(dbPool)

	docs := document.NewCoordinator(documentRepo, blobs, companyRepo, nil, tx,
		document.WithLogger(log.Named("document")),
		document.WithRecorder(m),
		document.WithMaxFileSize(cfg.Documents.MaxFileSize),
		document.WithCascadeConcurrency(cfg.Documents.CascadeConcurrency),
	)
	companies := company.NewService(companyRepo, docs, nil, tx,
		company.WithLogger(log.Named("company")),
		company.WithRecorder(m),
	)
	users := user.NewService(userRepo, nil, log.Named("user"))
	guard := access.NewGuard(companyRepo)

	handler := cli.NewHandler(
		registration.NewRepresentative(users, companies, docs, guard),
		registration.NewReviewer(companies, docs, guard),
		os.Stdout,
		os.Stderr,
		log,
	)

	if err := handler.Run(ctx, flag.Args()); err != nil {
		code := cli.ExitCode(err)
		if code == cli.ExitInternal {
			log.Error("command failed", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return code
	}
	return cli.ExitOK
}

func pushMetrics(m *metrics.Metrics, cfg config.MetricsConfig, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
	defer cancel()
	if err := m.Push(ctx, cfg); err != nil {
		log.Warn("failed to push metrics", zap.Error(err))
	}
}
