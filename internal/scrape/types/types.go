package types

import (
	"context"

	"jobhunt-aggregator/internal/domain"
)

// ScrapeResult is what one adapter hands back: the listings it produced and
// one failure per board that could not be scraped.
type ScrapeResult struct {
	Source   string
	Listings []domain.Listing
	Failures []domain.Failure
}

// Fetcher is the source adapter contract. Fetch never fails as a whole:
// board-level problems come back as Failures next to whatever listings the
// other boards produced.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ScrapeResult
}
