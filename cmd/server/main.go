package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	budgetapp "github.com/aicost/backend/internal/application/budget"
	"github.com/aicost/backend/internal/infrastructure/cache"
	"github.com/aicost/backend/internal/infrastructure/config"
	"github.com/aicost/backend/internal/infrastructure/logger"
	"github.com/aicost/backend/internal/infrastructure/persistence"
	"github.com/aicost/backend/internal/infrastructure/scheduler"
	"github.com/aicost/backend/internal/interfaces/http/handler"
	"github.com/aicost/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	components := cache.NewComponents(cfg.Redis, log)
	defer components.Close() //nolint:errcheck

	budgetRepo := persistence.NewGormBudgetRepository(db.DB)
	periodRepo := persistence.NewGormPeriodRepository(db.DB)
	thresholdRepo := persistence.NewGormThresholdRepository(db.DB)
	adjustmentRepo := persistence.NewGormAdjustmentRepository(db.DB)
	usageRepo := persistence.NewGormUsageRecordRepository(db.DB)
	alertRepo := persistence.NewGormAlertEventRepository(db.DB)

	periodMgr := budgetapp.NewPeriodManager(budgetRepo, periodRepo, thresholdRepo, log)
	calcEngine := budgetapp.NewCalculationEngine(budgetRepo, periodRepo, usageRepo, periodMgr, log)
	checker := budgetapp.NewThresholdChecker(budgetRepo, periodRepo, thresholdRepo, alertRepo, periodMgr, log)
	allocationSvc := budgetapp.NewAllocationService(budgetRepo, periodRepo, adjustmentRepo, periodMgr)
	budgetSvc := budgetapp.NewBudgetService(budgetRepo, periodRepo, thresholdRepo, adjustmentRepo, periodMgr, components.StatsCache)
	jobsSvc := budgetapp.NewJobsService(budgetRepo, alertRepo, periodMgr, calcEngine, checker, components.RunLocker,
		budgetapp.JobsConfig{
			ForecastEnabled: cfg.Jobs.ForecastEnabled,
			AlertDetailsCap: cfg.Jobs.AlertDetailsCap,
			LockTTL:         cfg.Scheduler.LockTTL,
		}, log)

	lifecycle := scheduler.NewLifecycleScheduler(jobsSvc, cfg.Scheduler, log)
	if err := lifecycle.Start(context.Background()); err != nil {
		return err
	}
	defer lifecycle.Stop()

	r := router.New(cfg, log)
	r.Register(
		handler.NewBudgetHandler(budgetSvc, allocationSvc, periodMgr, calcEngine),
		handler.NewJobsHandler(jobsSvc, checker),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Setup(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
