package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"jobhunt-aggregator/internal/config"
	"jobhunt-aggregator/internal/report"
	"jobhunt-aggregator/internal/store"
)

var (
	seenFrom  string
	seenLimit int
)

var seenCommand = &cobra.Command{
	Use:   "seen",
	Short: "Manage links that have already been reviewed",
}

var seenAddCommand = &cobra.Command{
	Use:   "add",
	Short: "Mark every link in a report as seen",
	Long:  "Reads the Link column of a report written by `run` and records each link in the seen database, or appends it to the already_seen list file when no seen_db is configured.",
	Args:  cobra.NoArgs,
	RunE:  seenAddCmd,
}

var seenImportCommand = &cobra.Command{
	Use:   "import <file>",
	Short: "Copy a newline-delimited link list into the seen database",
	Args:  cobra.ExactArgs(1),
	RunE:  seenImportCmd,
}

var seenListCommand = &cobra.Command{
	Use:   "list",
	Short: "Show the most recently seen links",
	Args:  cobra.NoArgs,
	RunE:  seenListCmd,
}

func init() {
	seenAddCommand.Flags().StringVar(&seenFrom, "from", "", "Report CSV to read links from (defaults to the configured output)")
	seenListCommand.Flags().IntVarP(&seenLimit, "limit", "n", 50, "Number of links to show")

	seenCommand.AddCommand(seenAddCommand, seenImportCommand, seenListCommand)
	rootCmd.AddCommand(seenCommand)
}

func seenAddCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	from := seenFrom
	if from == "" {
		from = cfg.Path(cfg.Output)
	}

	f, err := os.Open(from)
	if err != nil {
		return err
	}
	defer f.Close()
	links, err := report.ReadLinks(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", from, err)
	}

	var added int
	if cfg.SeenDB != "" {
		added, err = markSeen(cmd.Context(), cfg, links)
	} else {
		added, err = appendSeenList(cfg, links)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Marked %d new links as seen (%d in %s)\n", added, len(links), from)
	return nil
}

func seenImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SeenDB == "" {
		return errors.New("seen_db is not configured")
	}
	links, err := config.ReadListFile(args[0])
	if err != nil {
		return err
	}
	added, err := markSeen(cmd.Context(), cfg, links)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new links (%d in %s)\n", added, len(links), args[0])
	return nil
}

func seenListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SeenDB == "" {
		return errors.New("seen_db is not configured")
	}
	db, err := store.Open(cmd.Context(), cfg.Path(cfg.SeenDB))
	if err != nil {
		return err
	}
	defer db.Close()

	links, err := db.ListSeen(cmd.Context(), seenLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, l := range links {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.AddedAt.Format("2006-01-02"), l.Company, l.URL)
	}
	return tw.Flush()
}

func markSeen(ctx context.Context, cfg config.Config, links []string) (int, error) {
	db, err := store.Open(ctx, cfg.Path(cfg.SeenDB))
	if err != nil {
		return 0, err
	}
	defer db.Close()

	rows := make([]store.SeenLink, 0, len(links))
	for _, l := range links {
		rows = append(rows, store.SeenLink{URL: l})
	}
	return db.MarkSeen(ctx, rows)
}

// appendSeenList appends links missing from the already_seen file.
func appendSeenList(cfg config.Config, links []string) (int, error) {
	if cfg.Lists.AlreadySeen == "" {
		return 0, errors.New("neither seen_db nor lists.already_seen is configured")
	}
	path := cfg.Path(cfg.Lists.AlreadySeen)
	existing, err := config.ReadListFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}
	have := mapset.NewThreadUnsafeSet[string]()
	for _, l := range existing {
		have.Add(strings.ToLower(l))
	}

	var b strings.Builder
	added := 0
	for _, l := range links {
		if have.Add(strings.ToLower(l)) {
			b.WriteString(l + "\n")
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return 0, err
	}
	return added, f.Close()
}
