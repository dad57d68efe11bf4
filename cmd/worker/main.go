package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/streakdhq/streakd/internal/config"
	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/dedupe"
	"github.com/streakdhq/streakd/internal/logger"
	"github.com/streakdhq/streakd/internal/queue"
	"github.com/streakdhq/streakd/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New("worker", debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	loc, err := cfg.Location()
	if err != nil {
		zapLogger.Fatal("invalid_timezone", zap.Error(err))
	}
	rescanEvery, err := cfg.RescanEvery()
	if err != nil {
		zapLogger.Fatal("invalid_rescan_interval", zap.Error(err))
	}

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("timezone", cfg.Timezone),
		zap.Duration("rescan_interval", rescanEvery),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	taskRepo := database.NewTaskRepository(db)
	sessionRepo := database.NewFocusSessionRepository(db)
	dailyStatsRepo := database.NewDailyStatsRepository(db)
	streakDataRepo := database.NewStreakDataRepository(db)
	settingsRepo := database.NewStreakSettingsRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Refresh dedupe guard is best effort: a broken Redis only costs
	// duplicate (idempotent) refreshes.
	var guard workers.RefreshGuard
	if g, err := dedupe.NewGuard(cfg.RedisURL, dedupe.DefaultTTL, zapLogger); err != nil {
		zapLogger.Warn("refresh_guard_disabled", zap.Error(err))
	} else {
		guard = g
		defer func() {
			if err := g.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}

	refresher := workers.NewRefresher(
		taskRepo,
		sessionRepo,
		dailyStatsRepo,
		streakDataRepo,
		settingsRepo,
		jobQueue,
		guard,
		loc,
		zapLogger,
	)
	rescanner := workers.NewRescanner(jobQueue, settingsRepo, loc, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	go rescanner.Run(ctx, rescanEvery)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				if err := refresher.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("shutdown_signal_received")

	cancel()

	zapLogger.Info("worker_stopped")
}
