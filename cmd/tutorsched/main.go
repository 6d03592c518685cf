package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/app"
	"github.com/Freeeeeet/tutor_scheduler/internal/cache"
	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Tutor scheduler stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting tutor scheduler", zap.String("environment", cfg.Environment))

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		_ = migrator.Close()
		return err
	}
	_ = migrator.Close()

	metrics.Register()

	accountRepo := repository.NewAccountRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	state, err := service.LoadState(ctx, scheduleRepo, sessionRepo)
	if err != nil {
		return err
	}

	journal := service.NewJournal(repository.NewJournalStore(scheduleRepo, sessionRepo), logger.Named("journal"))
	journalCtx, stopJournal := context.WithCancel(context.WithoutCancel(ctx))
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		journal.Run(journalCtx)
	}()

	checks := []app.ReadinessCheck{{Name: "postgres", Ping: pool.Ping}}

	var matchCache service.MatchCache
	if cfg.CacheEnabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis is unavailable, match cache disabled", zap.Error(err))
		} else {
			matchCache = cache.NewMatchCache(rdb, cfg.MatchCacheTTL)
			checks = append(checks, app.ReadinessCheck{
				Name: "redis",
				Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			})
		}
	}

	validate := validator.New()
	locker := service.NewKeyedLocker()

	matchService := service.NewMatchService(enrollmentRepo, matchCache, logger.Named("match"))
	accountService := service.NewAccountService(accountRepo, enrollmentRepo, state, locker, journal, matchService, validate, logger.Named("accounts"))
	availabilityService := service.NewAvailabilityService(state, locker, journal, logger.Named("availability"))
	bookingService := service.NewBookingService(accountRepo, state, locker, journal, validate, logger.Named("booking"))

	services := &app.Services{
		Accounts:     accountService,
		Availability: availabilityService,
		Bookings:     bookingService,
		Matches:      matchService,
	}
	logger.Info("Services ready",
		zap.Bool("match_cache", matchCache != nil),
		zap.Bool("metrics", cfg.MetricsAddr != ""),
	)

	scheduler := app.NewScheduler(services.Bookings, cfg.CompletionSweepInterval, logger.Named("scheduler"))
	scheduler.Start(ctx)

	var metricsServer *app.MetricsServer
	if cfg.MetricsAddr != "" {
		metricsServer = app.NewMetricsServer(cfg.MetricsAddr, logger.Named("metrics"), checks...)
		metricsServer.Start()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	if err := journal.Flush(shutdownCtx); err != nil {
		logger.Error("Journal flush failed", zap.Error(err))
	}
	stopJournal()
	<-journalDone

	logger.Info("Tutor scheduler stopped")
	return nil
}
