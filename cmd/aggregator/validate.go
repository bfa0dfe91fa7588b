package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobhunt-aggregator/internal/config"
)

var validateWrite bool

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and list files",
	Long:  "Validates the config and its list files without scraping anything. With --write the trimmed, de-duplicated config is saved back, keeping the previous file as .bak.",
	Args:  cobra.NoArgs,
	RunE:  validateCmd,
}

func init() {
	validateCommand.Flags().BoolVar(&validateWrite, "write", false, "Save the normalized config back to disk")
	rootCmd.AddCommand(validateCommand)
}

func validateCmd(cmd *cobra.Command, _ []string) error {
	path := resolveConfigPath()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lists, warnings, err := config.LoadLists(cfg)
	if err != nil {
		return err
	}
	_, conflicts := config.CheckLists(lists)

	out := cmd.OutOrStdout()
	for _, w := range append(warnings, conflicts...) {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	fmt.Fprintf(out, "%s is valid\n", path)

	if validateWrite {
		if cfg.CompaniesFile != "" {
			// Saving would inline the overlaid boards into config.yml.
			return fmt.Errorf("--write cannot be used with companies_file; edit %s instead", cfg.Path(cfg.CompaniesFile))
		}
		if err := config.SaveAtomic(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s\n", path)
	}
	return nil
}
