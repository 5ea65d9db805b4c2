package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/estatedesk/cmd/estatectl/cmd"
	"github.com/templui/estatedesk/internal/logger"
)

func main() {
	logger.Init("development", "")

	rootCmd := &cobra.Command{
		Use:          "estatectl",
		Short:        "Operations tools for EstateDesk",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.SeedCmd())
	rootCmd.AddCommand(cmd.TokensCmd())
	rootCmd.AddCommand(cmd.DevCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
