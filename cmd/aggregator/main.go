// Command aggregator scrapes the configured job boards, filters the results
// and writes a CSV report of new openings.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jobhunt-aggregator/internal/config"
)

const configEnv = "JOBAGG_CONFIG"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "aggregator",
	Short:         "Job listing aggregator",
	Long:          "Scrapes Greenhouse, Lever, SmartRecruiters and Workday boards, custom career sites and job-alert emails, then writes the openings that pass your filters to a CSV report.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yml (defaults to $"+configEnv+", then ./config.yml)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	return "config.yml"
}

// loadConfig loads and validates the config, printing warnings to stderr.
func loadConfig() (config.Config, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, res := config.NormalizeAndValidate(cfg)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return cfg, res.Err()
}
