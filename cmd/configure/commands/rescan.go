package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streakdhq/streakd/internal/database"
)

// NewRescanCmd creates the rescan command with pause and resume subcommands.
func NewRescanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Manage periodic streak rescans for a user",
		Long:  "Pause or resume the twice-daily streak recompute for a user",
	}
	cmd.AddCommand(newRescanToggleCmd("pause", true))
	cmd.AddCommand(newRescanToggleCmd("resume", false))
	return cmd
}

func newRescanToggleCmd(use string, paused bool) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   use,
		Short: use + " periodic streak rescans for a user",
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
			ctx := context.Background()
			settings, err := repo.GetByUserID(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to get streak settings: %w", err)
			}
			settings.RescanPaused = paused
			if err := repo.Upsert(ctx, settings); err != nil {
				return fmt.Errorf("failed to save streak settings: %w", err)
			}

			if paused {
				fmt.Printf("Rescans paused for user %s.\n", userID)
			} else {
				fmt.Printf("Rescans resumed for user %s.\n", userID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID (required)")
	return cmd
}
