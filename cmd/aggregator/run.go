package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jobhunt-aggregator/internal/config"
	"jobhunt-aggregator/internal/events"
	"jobhunt-aggregator/internal/pipeline"
	"jobhunt-aggregator/internal/scheduler"
)

var (
	runVerbose bool
	runEvery   time.Duration
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Scrape every enabled source and write the report",
	Long: `Runs every enabled source concurrently, applies the title, keyword, location and already-seen filters, and writes the survivors sorted by company.

Boards that could not be scraped and locations that are on neither location list are printed to stderr.
With --every the run repeats until interrupted, re-reading the config and lists each time.`,
	Args: cobra.NoArgs,
	RunE: runCmd,
}

func init() {
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print per-board progress events")
	runCommand.Flags().DurationVar(&runEvery, "every", 0, "Repeat the run at this interval (e.g. 6h)")
	rootCmd.AddCommand(runCommand)
}

func runCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runEvery <= 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runOnce(ctx, cfg, cmd.OutOrStdout())
	}

	scheduler.Every(ctx, runEvery, "run", func(ctx context.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runOnce(ctx, cfg, cmd.OutOrStdout())
	})
	return nil
}

func runOnce(ctx context.Context, cfg config.Config, out io.Writer) error {
	runID := uuid.NewString()
	hub := events.NewHub()
	defer hub.Close()

	if runVerbose {
		ch := hub.Subscribe(64)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for evt := range ch {
				log.Printf("[event] %s", evt)
			}
		}()
		defer func() {
			hub.Unsubscribe(ch)
			<-done
		}()
	}

	sum, err := pipeline.Run(ctx, cfg, pipeline.Options{RunID: runID, Hub: hub})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d listings to %s (%d boards failed, %d locations need classification)\n",
		sum.Written, sum.Output, sum.Failures, sum.Unclassified)
	return nil
}
