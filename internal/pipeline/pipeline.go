// Package pipeline wires one aggregation run end to end: load the lists,
// fetch every source, filter, and write the report plus diagnostics.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"jobhunt-aggregator/internal/aggregate"
	"jobhunt-aggregator/internal/config"
	"jobhunt-aggregator/internal/events"
	"jobhunt-aggregator/internal/filter"
	"jobhunt-aggregator/internal/report"
	"jobhunt-aggregator/internal/runlock"
	"jobhunt-aggregator/internal/scrape"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/store"
)

type Options struct {
	RunID string
	Hub   *events.Hub

	// Deps is handed to scrape.BuildFetchers.
	Deps scrape.Deps
	// Fetchers replaces the configured adapters when non-nil.
	Fetchers []types.Fetcher

	// Diagnostics receives failures and unclassified locations. Defaults to stderr.
	Diagnostics io.Writer
}

// Run performs one run against cfg. Board failures never fail the run; only
// an unusable configuration or an unwritable report does.
func Run(ctx context.Context, cfg config.Config, opts Options) (report.Summary, error) {
	sum := report.Summary{RunID: opts.RunID, Output: cfg.Path(cfg.Output)}
	if opts.Diagnostics == nil {
		opts.Diagnostics = os.Stderr
	}

	lock, err := runlock.Acquire(sum.Output)
	if err != nil {
		return sum, err
	}
	defer lock.Release()

	cfgLists, _, err := config.LoadLists(cfg)
	if err != nil {
		return sum, err
	}
	cfgLists, warnings := config.CheckLists(cfgLists)
	for _, w := range warnings {
		log.Printf("[config] warning: %s", w)
	}

	if cfg.SeenDB != "" {
		seen, err := seenFromDB(ctx, cfg.Path(cfg.SeenDB))
		if err != nil {
			return sum, err
		}
		cfgLists.AlreadySeen = append(cfgLists.AlreadySeen, seen...)
	}

	fetchers := opts.Fetchers
	if fetchers == nil {
		deps := opts.Deps
		deps.Hub, deps.RunID = opts.Hub, opts.RunID
		fetchers, err = scrape.BuildFetchers(cfg, deps)
		if err != nil {
			return sum, err
		}
	}
	if len(fetchers) == 0 {
		log.Printf("[pipeline] no sources enabled; writing an empty report")
	}

	agg := aggregate.Aggregator{
		Fetchers: fetchers,
		Parallel: cfg.Concurrency.Sources,
		Hub:      opts.Hub,
		RunID:    opts.RunID,
	}.Run(ctx)

	res := filter.NewChain(filter.Lists(cfgLists)).Apply(agg.Listings)

	if err := report.WriteFile(sum.Output, res.Listings); err != nil {
		return sum, fmt.Errorf("write report %s: %w", sum.Output, err)
	}
	if err := report.WriteDiagnostics(opts.Diagnostics, agg.Failures, res.NeedsClassification); err != nil {
		log.Printf("[pipeline] diagnostics: %v", err)
	}

	sum.Raw = res.Counts.Raw
	sum.AfterTitles = res.Counts.AfterTitles
	sum.AfterKeywords = res.Counts.AfterKeywords
	sum.AfterLocations = res.Counts.AfterLocations
	sum.Written = len(res.Listings)
	sum.Failures = len(agg.Failures)
	sum.Unclassified = len(res.NeedsClassification)
	log.Printf("[pipeline] %s", sum)
	return sum, nil
}

func seenFromDB(ctx context.Context, path string) ([]string, error) {
	db, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open seen db: %w", err)
	}
	defer db.Close()
	return db.SeenURLs(ctx)
}
