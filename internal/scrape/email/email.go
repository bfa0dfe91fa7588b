// Package email turns job-alert emails into listings for the boards the
// operator follows by alert rather than by scraping.
package email

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/events"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/scrape/util"
)

// MailboxCompany is the failure company used when the mailbox itself cannot be read.
const MailboxCompany = "mailbox"

// AlertBoard maps links containing Match to Company.
type AlertBoard struct {
	Company string
	Match   string
}

type Config struct {
	Dialer      Dialer
	Boards      []AlertBoard
	SubjectAny  []string // empty means every message
	SinceDays   int
	MaxMessages int

	Hub   *events.Hub
	RunID string
}

type Scraper struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Scraper {
	if cfg.SinceDays <= 0 {
		cfg.SinceDays = 14
	}
	return &Scraper{cfg: cfg, now: time.Now}
}

func (s *Scraper) Name() string { return "email" }

func (s *Scraper) Fetch(ctx context.Context) types.ScrapeResult {
	res := types.ScrapeResult{Source: s.Name()}

	listings, err := s.fetch(ctx)
	if err != nil {
		f := domain.NewFailure(s.Name(), MailboxCompany, err)
		log.Printf("[email] kind=%s err=%v", f.Kind, err)
		res.Failures = append(res.Failures, f)
		s.cfg.Hub.Publish(events.MakeEvent(s.cfg.RunID, events.TypeBoardFailed, events.BoardOutcome{
			Source: s.Name(), Company: MailboxCompany, Reason: f.Reason,
		}))
	}
	res.Listings = listings

	log.Printf("[email] Processed: boards=%d listings=%d failures=%d", len(s.cfg.Boards), len(res.Listings), len(res.Failures))
	s.cfg.Hub.Publish(events.MakeEvent(s.cfg.RunID, events.TypeSourceDone, events.SourceSummary{
		Source: s.Name(), Listings: len(res.Listings), Failures: len(res.Failures),
	}))
	return res
}

func (s *Scraper) fetch(ctx context.Context) ([]domain.Listing, error) {
	if s.cfg.Dialer == nil {
		return nil, fmt.Errorf("%w: no mailbox configured", domain.ErrSourceUnavailable)
	}
	mb, err := s.cfg.Dialer.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer mb.Close()

	cutoff := s.now().AddDate(0, 0, -s.cfg.SinceDays)
	msgs, err := mb.Since(ctx, cutoff, s.cfg.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	var links []Link
	for _, m := range msgs {
		subject, plain, html, err := bodies(m.Raw)
		if err != nil {
			log.Printf("[email] uid=%d skip unparsable message: %v", m.UID, err)
			continue
		}
		if subject == "" {
			subject = m.Subject
		}
		if !containsAny(subject, s.cfg.SubjectAny) {
			continue
		}
		links = append(links, Links(plain, html)...)
	}

	return Match(links, s.cfg.Boards), nil
}

// Match assigns links to alert boards in board order. A link goes to every
// board whose Match it contains (case-insensitive) and appears once per board.
// Links without anchor text have no usable title and are skipped.
func Match(links []Link, boards []AlertBoard) []domain.Listing {
	var out []domain.Listing
	for _, b := range boards {
		needle := domain.Fold(b.Match)
		if needle == "" {
			continue
		}
		seen := mapset.NewThreadUnsafeSet[string]()
		n := 0
		for _, l := range links {
			if l.Text == "" || !strings.Contains(domain.Fold(l.URL), needle) {
				continue
			}
			if !seen.Add(strings.ToLower(l.URL)) {
				continue
			}
			out = append(out, domain.Listing{
				Company: b.Company,
				Title:   util.CleanText(l.Text),
				URL:     l.URL,
			})
			n++
		}
		log.Printf("[email] company=%q matched=%d", b.Company, n)
	}
	return out
}

func containsAny(s string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	s = domain.Fold(s)
	for _, t := range terms {
		if t = domain.Fold(t); t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
