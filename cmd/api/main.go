package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexusplan/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nexusplan",
		Short: "NexusPlan planning server",
		Long:  `NexusPlan is a local-first personal planning server with daily schedule, tasks, calendar and notes, backed by optional cloud sync.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
