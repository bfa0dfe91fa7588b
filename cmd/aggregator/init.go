package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobhunt-aggregator/internal/config"
)

var initCommand = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter config and empty list files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		cfgPath, created, err := config.EnsureDefault(dir)
		if err != nil {
			return fmt.Errorf("config bootstrap failed: %w", err)
		}
		for _, p := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", p)
		}
		if len(created) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", cfgPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCommand)
}
