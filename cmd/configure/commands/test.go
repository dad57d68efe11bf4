package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/streakdhq/streakd/internal/config"
	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/queue"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test service dependencies",
		Long:  "Test connectivity to the database, Redis, and the message broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer closeDatabase(db)
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database ping failed: %w", err)
			}
			fmt.Println("✓ Database is reachable")

			opts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid Redis URL: %w", err)
			}
			redisClient := redis.NewClient(opts)
			defer func() {
				if err := redisClient.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close Redis client: %v\n", err)
				}
			}()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping failed: %w", err)
			}
			fmt.Println("✓ Redis is reachable")

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close queue: %v\n", err)
				}
			}()
			if err := jobQueue.HealthCheck(ctx); err != nil {
				return fmt.Errorf("rabbitmq health check failed: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			fmt.Println("\n✓ All dependencies are reachable")
			return nil
		},
	}

	return cmd
}
