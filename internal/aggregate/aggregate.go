// Package aggregate runs every source adapter and merges their output into
// one raw listing set plus the union of board failures.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/events"
	"jobhunt-aggregator/internal/scrape/types"
)

type Aggregator struct {
	Fetchers []types.Fetcher
	// Parallel bounds how many adapters run at once; <= 0 means all.
	Parallel int

	Hub   *events.Hub
	RunID string
}

type Result struct {
	Listings []domain.Listing
	Failures []domain.Failure
	// PerSource is indexed like Fetchers.
	PerSource []types.ScrapeResult
}

// Run fetches from every adapter. Adapters never fail as a whole; a panic in
// one becomes a single failure for that source and the others carry on.
// Listings are merged in Fetchers order, so the result does not depend on
// which adapter finished first.
func (a Aggregator) Run(ctx context.Context) Result {
	results := make([]types.ScrapeResult, len(a.Fetchers))

	var g errgroup.Group
	if a.Parallel > 0 {
		g.SetLimit(a.Parallel)
	}

	for i, f := range a.Fetchers {
		g.Go(func() error {
			started := time.Now()
			log.Printf("[%s] Running...", f.Name())
			results[i] = safeFetch(ctx, f)
			log.Printf("[%s] done in %s listings=%d failures=%d",
				f.Name(), time.Since(started).Round(time.Millisecond), len(results[i].Listings), len(results[i].Failures))
			return nil // best-effort: don't cancel siblings
		})
	}
	_ = g.Wait()

	res := Result{PerSource: results}
	for _, r := range results {
		res.Listings = append(res.Listings, r.Listings...)
		res.Failures = append(res.Failures, r.Failures...)
	}

	a.Hub.Publish(events.MakeEvent(a.RunID, events.TypeRunDone, events.RunSummary{
		Sources: len(a.Fetchers), Listings: len(res.Listings), Failures: len(res.Failures),
	}))
	return res
}

func safeFetch(ctx context.Context, f types.Fetcher) (res types.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: adapter panic: %v", domain.ErrMarkupMismatch, r)
			log.Printf("[%s] %v", f.Name(), err)
			res = types.ScrapeResult{
				Source:   f.Name(),
				Failures: []domain.Failure{domain.NewFailure(f.Name(), "(all boards)", err)},
			}
		}
	}()
	res = f.Fetch(ctx)
	if res.Source == "" {
		res.Source = f.Name()
	}
	return res
}
