package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/database"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"
	"github.com/segyhp/loan-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	accrual := service.NewAccrual(repository.NewLoanRepository(db), cfg.Business.AccrualPeriod, zl)

	// Config validation already checked the timezone
	loc, _ := time.LoadLocation(cfg.Scheduler.Timezone)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := setupCronJobs(ctx, c, cfg, accrual, zl); err != nil {
		zl.Fatal("failed to schedule jobs", zap.Error(err))
	}

	// Start the scheduler
	c.Start()
	zl.Info("scheduler started", zap.String("spec", cfg.Scheduler.Spec), zap.String("timezone", loc.String()))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down scheduler")
	cancel()
	<-c.Stop().Done()
	zl.Info("scheduler stopped")
}

type accruer interface {
	AccrueAll(ctx context.Context) (int, error)
}

func setupCronJobs(ctx context.Context, c *cron.Cron, cfg *config.Config, loans accruer, zl *zap.Logger) error {
	_, err := c.AddFunc(cfg.Scheduler.Spec, func() {
		accrueInterest(ctx, loans, zl)
	})
	return err
}

// accrueInterest charges interest on every active loan that has a whole
// period due.
func accrueInterest(ctx context.Context, loans accruer, zl *zap.Logger) {
	start := time.Now()

	updated, err := loans.AccrueAll(ctx)
	if err != nil {
		zl.Error("interest accrual run failed", zap.Int("updated", updated), zap.Error(err))
		return
	}

	zl.Info("interest accrual run finished",
		zap.Int("updated", updated),
		zap.Duration("duration", time.Since(start)),
	)
}
