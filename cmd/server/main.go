package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/database"
	"github.com/segyhp/loan-ledger/internal/events"
	"github.com/segyhp/loan-ledger/internal/events/kafka"
	"github.com/segyhp/loan-ledger/internal/handler"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"
	"github.com/segyhp/loan-ledger/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

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

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	// Initialize database
	if err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, zl); err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	publisher := initPublisher(cfg, zl)
	defer publisher.Close()

	// Initialize repositories
	memberRepo := repository.NewMemberRepository(db)
	loanRepo := repository.NewLoanRepository(db)

	// Initialize services
	directory := service.NewDirectory(memberRepo, redisClient, cfg.Redis.DirectoryCacheTTL, zl)
	feed := service.NewActivityFeed(publisher, zl)
	loanService := service.NewLoanService(loanRepo, directory, feed, cfg, zl)

	router := handler.NewRouter(
		handler.NewLoanHandler(loanService, zl),
		handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout, zl),
		auth.NewGuard(memberRepo, zl),
		cfg.CORS.GetAllowedOrigins(),
		zl,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		zl.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	zl.Info("server exited")
	return nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func initPublisher(cfg *config.Config, zl *zap.Logger) events.Publisher {
	brokers := cfg.Kafka.GetBrokers()
	if len(brokers) == 0 {
		zl.Info("activity publishing disabled, no kafka brokers configured")
		return events.NoopPublisher{}
	}

	zl.Info("publishing activities to kafka",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.Kafka.ActivityTopic),
	)
	return kafka.NewPublisher(brokers, cfg.Kafka.ActivityTopic)
}
