package smartrecruiters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/pool"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/scrape/util"
)

const (
	APIRoot  = "https://api.smartrecruiters.com/v1/companies/"
	JobsRoot = "https://jobs.smartrecruiters.com/"
	pageSize = 100
	maxPages = 50
)

type Config struct {
	Boards  []domain.Board
	APIRoot string // overridable for tests
	Pool    pool.Options
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Scraper {
	if cfg.APIRoot == "" {
		cfg.APIRoot = APIRoot
	}
	if !strings.HasSuffix(cfg.APIRoot, "/") {
		cfg.APIRoot += "/"
	}
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 25 * time.Second},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return "smartrecruiters" }

// Response schema (public API) is typically:
// { "content": [...], "totalFound": N, "offset": O, "limit": L }
type postingsResponse struct {
	Content    []posting `json:"content"`
	TotalFound int       `json:"totalFound"`
}

type posting struct {
	ID       string `json:"id"`
	UUID     string `json:"uuid"`
	Ref      string `json:"ref"`
	Name     string `json:"name"`
	Location struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
}

func (s *Scraper) Fetch(ctx context.Context) types.ScrapeResult {
	return pool.Run(ctx, s.cfg.Pool, s.Name(), s.cfg.Boards,
		func(b domain.Board) string { return b.Company },
		s.fetchBoard)
}

// fetchBoard pages through the postings API by offset. A company with no
// open postings is valid here: the API answers with an empty content list.
func (s *Scraper) fetchBoard(ctx context.Context, b domain.Board) ([]domain.Listing, error) {
	slug := b.Slug()
	base := s.cfg.APIRoot + url.PathEscape(slug) + "/postings"

	var out []domain.Listing
	// fetched counts raw postings, parsed or not; it drives the offset.
	fetched := 0
	for page := 0; page < maxPages; page++ {
		u := fmt.Sprintf("%s?limit=%d&offset=%d", base, pageSize, fetched)
		body, err := util.FetchBody(ctx, s.hc, s.limiter, u, http.Header{"Accept": {"application/json"}})
		if err != nil {
			return nil, err
		}

		var pr postingsResponse
		if err := json.Unmarshal(body, &pr); err != nil {
			return nil, fmt.Errorf("%w: smartrecruiters decode: %v", domain.ErrMarkupMismatch, err)
		}
		if pr.Content == nil {
			return nil, fmt.Errorf("%w: smartrecruiters response has no content list", domain.ErrMarkupMismatch)
		}
		if len(pr.Content) == 0 {
			break
		}

		fetched += len(pr.Content)
		for _, p := range pr.Content {
			title := util.CleanText(p.Name)
			id := strings.TrimSpace(util.FirstNonEmpty(p.ID, p.UUID, p.Ref))
			if title == "" || id == "" {
				continue
			}
			out = append(out, domain.Listing{
				Company:  b.Company,
				Title:    title,
				URL:      JobsRoot + url.PathEscape(slug) + "/" + url.PathEscape(id),
				Location: location(p),
			})
		}
		if pr.TotalFound > 0 && fetched >= pr.TotalFound {
			break
		}
	}
	return out, nil
}

func location(p posting) string {
	var parts []string
	for _, s := range []string{p.Location.City, p.Location.Region, p.Location.Country} {
		if s = util.CleanText(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 && p.Location.Remote {
		return "Remote"
	}
	return strings.Join(parts, ", ")
}
