package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/streakdhq/streakd/internal/config"
	"github.com/streakdhq/streakd/internal/database"
	"github.com/streakdhq/streakd/internal/validation"
)

// NewThresholdCmd creates the threshold command with get and set subcommands.
func NewThresholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Manage a user's streak threshold",
		Long:  "Get or set the completion percentage a day must reach to count toward a user's streak",
	}
	cmd.AddCommand(newThresholdGetCmd())
	cmd.AddCommand(newThresholdSetCmd())
	return cmd
}

func newThresholdGetCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user's streak threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserFlag(user)
			if err != nil {
				return err
			}
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			repo := database.NewStreakSettingsRepository(db)
			settings, err := repo.GetByUserID(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("failed to get streak settings: %w", err)
			}

			fmt.Printf("Streak settings for user %s:\n", userID)
			fmt.Printf("  Threshold: %d%%\n", settings.StreakThreshold)
			fmt.Printf("  Rescan paused: %v\n", settings.RescanPaused)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID (required)")
	return cmd
}

func newThresholdSetCmd() *cobra.Command {
	var user string
	var value int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a user's streak threshold",
		Long:  "Set the completion percentage (1-100) a day must reach to count toward the user's streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserFlag(user)
			if err != nil {
				return err
			}
			if err := validation.ValidateStreakThreshold(value); err != nil {
				return err
			}
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			repo := database.NewStreakSettingsRepository(db)
			ctx := context.Background()
			settings, err := repo.GetByUserID(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to get streak settings: %w", err)
			}
			settings.StreakThreshold = value
			if err := repo.Upsert(ctx, settings); err != nil {
				return fmt.Errorf("failed to save streak settings: %w", err)
			}

			fmt.Printf("Streak threshold for user %s set to %d%%.\n", userID, value)
			fmt.Println("Note: the streak is reclassified on the user's next refresh or rescan.")
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID (required)")
	cmd.Flags().IntVar(&value, "value", 0, "Threshold percentage, 1-100 (required)")
	return cmd
}

func parseUserFlag(user string) (uuid.UUID, error) {
	if user == "" {
		return uuid.Nil, fmt.Errorf("--user is required")
	}
	userID, err := uuid.Parse(user)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q: %w", user, err)
	}
	return userID, nil
}

func openDatabase() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func closeDatabase(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
