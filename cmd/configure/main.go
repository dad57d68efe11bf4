package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streakdhq/streakd/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "streakd-configure",
		Short: "Configuration tool for the streakd service",
		Long:  "CLI tool for managing per-user streak settings and checking service dependencies",
	}

	rootCmd.AddCommand(commands.NewThresholdCmd())
	rootCmd.AddCommand(commands.NewRescanCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
