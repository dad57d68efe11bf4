package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streakdhq/streakd/internal/database"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users with streak activity",
		Long:  "List users with daily stats history and their streak settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			repo := database.NewStreakSettingsRepository(db)
			ctx := context.Background()

			userIDs, err := repo.GetActiveUserIDs(ctx)
			if err != nil {
				return fmt.Errorf("failed to list active users: %w", err)
			}

			if len(userIDs) == 0 {
				fmt.Println("No users with streak activity")
				return nil
			}

			fmt.Println("Users with streak activity:")
			for _, userID := range userIDs {
				settings, err := repo.GetByUserID(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to get settings for %s: %w", userID, err)
				}
				fmt.Printf("  - User: %s\n", userID)
				fmt.Printf("    Threshold: %d%%\n", settings.StreakThreshold)
				fmt.Printf("    Rescan paused: %v\n", settings.RescanPaused)
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}
