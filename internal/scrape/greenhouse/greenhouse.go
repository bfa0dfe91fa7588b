package greenhouse

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

const RootURL = "https://boards.greenhouse.io/"

type Config struct {
	Boards  []domain.Board
	RootURL string // boards.greenhouse.io/<slug>; overridable for tests
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

func (s *Scraper) Name() string { return "greenhouse" }

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
		return nil, fmt.Errorf("%w: greenhouse parse board html: %v", domain.ErrMarkupMismatch, err)
	}

	listings := ParseBoard(doc, b.Company, s.cfg.RootURL)
	if len(listings) == 0 {
		// Board templates are stable; zero openings means the markup moved.
		return nil, fmt.Errorf("%w: no openings found at %s", domain.ErrMarkupMismatch, boardURL)
	}
	return listings, nil
}

// ParseBoard extracts openings from a board page. The classic template groups
// openings as section.level-0 > div.opening; newer boards render tr.job-post rows,
// which are only consulted when the classic layout yields nothing.
func ParseBoard(doc *goquery.Document, company, root string) []domain.Listing {
	var out []domain.Listing

	doc.Find("section.level-0").Each(func(_ int, section *goquery.Selection) {
		section.Find("div.opening").Each(func(_ int, opening *goquery.Selection) {
			a := opening.Find("a").First()
			l, ok := listing(company, root, a, a.Text(), opening.Find("span.location").First().Text())
			if ok {
				out = append(out, l)
			}
		})
	})
	if len(out) > 0 {
		return out
	}

	doc.Find("tr.job-post").Each(func(_ int, row *goquery.Selection) {
		a := row.Find("a[href]").First()
		title := a.Find("p.body--medium").First().Text()
		if strings.TrimSpace(title) == "" {
			title = a.Text()
		}
		l, ok := listing(company, root, a, title, a.Find("p.body--metadata").First().Text())
		if ok {
			out = append(out, l)
		}
	})
	return out
}

func listing(company, root string, a *goquery.Selection, title, location string) (domain.Listing, bool) {
	href, ok := a.Attr("href")
	if !ok {
		return domain.Listing{}, false
	}
	link, err := util.ResolveURL(root, href)
	if err != nil {
		return domain.Listing{}, false
	}
	title = util.CleanText(title)
	if title == "" {
		return domain.Listing{}, false
	}
	return domain.Listing{
		Company:  company,
		Title:    title,
		URL:      link,
		Location: util.CleanText(location),
	}, true
}
