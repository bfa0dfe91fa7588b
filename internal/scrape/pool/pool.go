// Package pool runs one adapter's boards through a bounded worker pool and
// turns every board-level error into a failure record.
package pool

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/events"
	"jobhunt-aggregator/internal/scrape/types"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	Workers      int
	BoardTimeout time.Duration
	Hub          *events.Hub
	RunID        string
}

// BoardFunc scrapes a single board. Returning listings together with an error
// keeps those listings (partial results); returning nil discards them.
type BoardFunc[B any] func(ctx context.Context, board B) ([]domain.Listing, error)

type outcome struct {
	listings []domain.Listing
	failure  *domain.Failure
}

// Run scrapes every board with at most opts.Workers in flight. One board's
// error, timeout or panic never stops the others. Listings and failures come
// back in board order regardless of which worker finished first.
func Run[B any](ctx context.Context, opts Options, source string, boards []B, company func(B) string, scrape BoardFunc[B]) types.ScrapeResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	results := make([]outcome, len(boards))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, b := range boards {
		g.Go(func() error {
			name := company(b)
			listings, err := runOne(ctx, opts.BoardTimeout, b, scrape)
			results[i].listings = listings
			if err != nil {
				f := domain.NewFailure(source, name, err)
				results[i].failure = &f
				log.Printf("[ats:%s] company=%q kind=%s err=%v", source, name, f.Kind, err)
				opts.Hub.Publish(events.MakeEvent(opts.RunID, events.TypeBoardFailed, events.BoardOutcome{
					Source: source, Company: name, Listings: len(listings), Reason: f.Reason,
				}))
				return nil // best-effort: don't cancel siblings
			}
			opts.Hub.Publish(events.MakeEvent(opts.RunID, events.TypeBoardOK, events.BoardOutcome{
				Source: source, Company: name, Listings: len(listings),
			}))
			return nil
		})
	}
	_ = g.Wait()

	res := types.ScrapeResult{Source: source}
	for _, r := range results {
		res.Listings = append(res.Listings, r.listings...)
		if r.failure != nil {
			res.Failures = append(res.Failures, *r.failure)
		}
	}

	log.Printf("[%s] Processed: boards=%d listings=%d failures=%d", source, len(boards), len(res.Listings), len(res.Failures))
	opts.Hub.Publish(events.MakeEvent(opts.RunID, events.TypeSourceDone, events.SourceSummary{
		Source: source, Listings: len(res.Listings), Failures: len(res.Failures),
	}))
	return res
}

func runOne[B any](ctx context.Context, timeout time.Duration, b B, scrape BoardFunc[B]) (listings []domain.Listing, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: run cancelled before board started: %v", domain.ErrSourceUnavailable, err)
	}
	bctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			listings = nil
			err = fmt.Errorf("%w: adapter panic: %v", domain.ErrMarkupMismatch, r)
		}
	}()
	return scrape(bctx, b)
}
