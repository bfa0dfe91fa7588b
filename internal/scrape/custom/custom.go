// Package custom scrapes career pages that are not hosted on a known ATS by
// driving a browser through a per-site flow.
package custom

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobhunt-aggregator/internal/browser"
	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/pool"
	"jobhunt-aggregator/internal/scrape/types"
)

// Descriptor is the declarative form for simple sites: load the careers page,
// optionally click through a gate, wait for job items and read them.
type Descriptor struct {
	Company           string
	CareersURL        string
	ItemSelector      string
	TitleSelector     string
	LinkSelector      string
	LocationSelector  string
	PrerequisiteClick string
}

func (d Descriptor) Flow() Flow {
	f := Flow{{Kind: StepNavigate, URL: d.CareersURL}}
	if d.PrerequisiteClick != "" {
		f = append(f, Step{Kind: StepClick, Selector: d.PrerequisiteClick})
	}
	return append(f,
		Step{Kind: StepWait, Selector: d.ItemSelector},
		Step{Kind: StepScrape, Item: d.ItemSelector, Title: d.TitleSelector, Link: d.LinkSelector, Location: d.LocationSelector},
	)
}

// Site is one custom board: a company and the flow that scrapes it.
type Site struct {
	Company string
	Flow    Flow
}

type Config struct {
	Sites       []Site
	Launcher    browser.Launcher
	WaitTimeout time.Duration
	Pool        pool.Options
}

type Scraper struct {
	cfg Config
}

func New(cfg Config) (*Scraper, error) {
	for _, s := range cfg.Sites {
		if err := s.Flow.Validate(); err != nil {
			return nil, fmt.Errorf("custom site %q: %w", s.Company, err)
		}
	}
	if cfg.Launcher == nil {
		cfg.Launcher = browser.Chrome{}
	}
	return &Scraper{cfg: cfg}, nil
}

func (s *Scraper) Name() string { return "custom" }

func (s *Scraper) Fetch(ctx context.Context) types.ScrapeResult {
	return pool.Run(ctx, s.cfg.Pool, s.Name(), s.cfg.Sites,
		func(site Site) string { return site.Company },
		s.scrapeSite)
}

// scrapeSite owns one browser session for the duration of the flow.
func (s *Scraper) scrapeSite(ctx context.Context, site Site) ([]domain.Listing, error) {
	page, closeBrowser, err := s.cfg.Launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	defer closeBrowser()

	listings, err := site.Flow.Run(ctx, page, site.Company, s.cfg.WaitTimeout)
	if err == nil {
		log.Printf("[custom] company=%q listings=%d", site.Company, len(listings))
	}
	return listings, err
}
