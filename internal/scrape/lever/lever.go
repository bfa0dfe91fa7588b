package lever

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/pool"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
)

const RootURL = "https://jobs.lever.co/"

type Config struct {
	Boards  []domain.Board
	RootURL string // jobs.lever.co/<slug>
	Pool    pool.Options
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Scraper {
	if cfg.RootURL == "" {
		cfg.RootURL = RootURL
	}
	if !strings.HasSuffix(cfg.RootURL, "/") {
		cfg.RootURL += "/"
	}
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return "lever" }

func (s *Scraper) Fetch(ctx context.Context) types.ScrapeResult {
	return pool.Run(ctx, s.cfg.Pool, s.Name(), s.cfg.Boards,
		func(b domain.Board) string { return b.Company },
		s.fetchBoard)
}

func (s *Scraper) fetchBoard(ctx context.Context, b domain.Board) ([]domain.Listing, error) {
	boardURL := s.cfg.RootURL + b.Slug()

	body, err := util.FetchBody(ctx, s.hc, s.limiter, boardURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: lever parse board html: %v", domain.ErrMarkupMismatch, err)
	}

	listings := ParseBoard(doc, b.Company, s.cfg.RootURL)
	if len(listings) == 0 {
		return nil, fmt.Errorf("%w: no postings found at %s", domain.ErrMarkupMismatch, boardURL)
	}
	return listings, nil
}

// ParseBoard extracts div.posting entries. When a posting carries a commitment
// tag (Intern, Full-time, ...) it is appended to the title in parenthesis.
func ParseBoard(doc *goquery.Document, company, root string) []domain.Listing {
	var out []domain.Listing
	doc.Find("div.posting").Each(func(_ int, p *goquery.Selection) {
		href, ok := p.Find("a.posting-title").First().Attr("href")
		if !ok {
			return
		}
		link, err := util.ResolveURL(root, href)
		if err != nil {
			return
		}

		title := util.CleanText(p.Find("h5").First().Text())
		if title == "" {
			return
		}
		if c := p.Find("span.sort-by-commitment").First(); c.Length() > 0 {
			if commitment := util.CleanText(c.Text()); commitment != "" {
				title = title + " (" + commitment + ")"
			}
		}

		out = append(out, domain.Listing{
			Company:  company,
			Title:    title,
			URL:      link,
			Location: util.CleanText(p.Find("span.sort-by-location").First().Text()),
		})
	})
	return out
}
