package workday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/pool"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/scrape/util"
)

const (
	listKey    = "listItems"
	moreMarker = ", More..."
	maxPages   = 200
)

var ErrWorkdayBlocked = errors.New("workday blocked by cloudflare")

type Config struct {
	Boards []domain.Board // Link is the full board URL, e.g. https://acme.wd5.myworkdayjobs.com/Careers
	Pool   pool.Options
}

type Scraper struct {
	cfg     Config
	limiter *util.HostLimiter

	mu          sync.Mutex
	blockedHost map[string]bool
}

func New(cfg Config, limiter *util.HostLimiter) *Scraper {
	return &Scraper{
		cfg:         cfg,
		limiter:     limiter,
		blockedHost: map[string]bool{},
	}
}

func (s *Scraper) Name() string { return "workday" }

func newClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
	}
}

func (s *Scraper) Fetch(ctx context.Context) types.ScrapeResult {
	return pool.Run(ctx, s.cfg.Pool, s.Name(), s.cfg.Boards,
		func(b domain.Board) string { return b.Company },
		s.fetchBoard)
}

// fetchBoard loads the first page, finds the Pagination endpoint descriptor
// anywhere in the response, then requests endpoint/<accumulated count> until a
// page no longer carries a result list.
func (s *Scraper) fetchBoard(ctx context.Context, b domain.Board) ([]domain.Listing, error) {
	boardURL := strings.TrimSpace(b.Link)
	root, err := util.Origin(boardURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad workday board url: %v", domain.ErrSourceUnavailable, err)
	}
	host := hostOf(root)

	if s.isBlocked(host) {
		return nil, fmt.Errorf("%w: %v (host %s)", domain.ErrSourceUnavailable, ErrWorkdayBlocked, host)
	}

	// Per-board client with a cookie jar so session cookies persist across pages.
	hc := newClient()

	first, err := s.getJSON(ctx, hc, boardURL)
	if errors.Is(err, ErrWorkdayBlocked) {
		s.markBlocked(host)
	}
	if err != nil {
		return nil, err
	}

	items, ok := util.FindKey(first, listKey)
	if !ok {
		return nil, fmt.Errorf("%w: no %s in first page of %s", domain.ErrMarkupMismatch, listKey, boardURL)
	}
	out := appendItems(nil, items, root, b.Company)
	// fetched counts raw items, including ones that did not parse; it is the
	// offset the endpoint expects.
	fetched := rawCount(items)

	endpoint, ok := paginationURI(first)
	if !ok {
		log.Printf("[ats:workday] company=%q no pagination endpoint; single page listings=%d", b.Company, len(out))
		return out, nil
	}

	for page := 0; page < maxPages; page++ {
		next, err := util.ResolveURL(root, pageURL(endpoint, fetched))
		if err != nil {
			return nil, fmt.Errorf("%w: pagination endpoint %q: %v", domain.ErrMarkupMismatch, endpoint, err)
		}
		doc, err := s.getJSON(ctx, hc, next)
		if err != nil {
			return nil, err
		}
		items, ok := util.FindKey(doc, listKey)
		if !ok {
			break
		}
		n := rawCount(items)
		if n == 0 {
			// An empty list would request the same offset forever.
			break
		}
		fetched += n
		out = appendItems(out, items, root, b.Company)
	}
	return out, nil
}

func (s *Scraper) getJSON(ctx context.Context, hc *http.Client, raw string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US")

	if err := s.limiter.WaitURL(ctx, raw); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrSourceUnavailable, err)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: workday get %s: %v", domain.ErrSourceUnavailable, raw, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: workday read: %v", domain.ErrSourceUnavailable, err)
	}

	if looksLikeCloudflareBlock(res, string(data[:min(len(data), 4096)])) {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, ErrWorkdayBlocked)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: workday status %d body=%s",
			domain.ErrSourceUnavailable, res.StatusCode, util.Truncate(string(data), 240))
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: workday decode: %v body=%s", domain.ErrMarkupMismatch, err, util.Truncate(string(data), 240))
	}
	return tree, nil
}

func paginationURI(tree any) (string, bool) {
	m, ok := util.FindObject(tree, func(m map[string]any) bool {
		t, _ := m["type"].(string)
		u, _ := m["uri"].(string)
		return t == "Pagination" && u != ""
	})
	if !ok {
		return "", false
	}
	return m["uri"].(string), true
}

// pageURL appends offset to the pagination endpoint. A bare path segment gets
// a separating slash; an endpoint ending in "/" or "=" is concatenated as-is.
func pageURL(endpoint string, offset int) string {
	n := strconv.Itoa(offset)
	if strings.HasSuffix(endpoint, "/") || strings.HasSuffix(endpoint, "=") {
		return endpoint + n
	}
	return endpoint + "/" + n
}

func rawCount(items any) int {
	list, _ := items.([]any)
	return len(list)
}

func appendItems(out []domain.Listing, items any, root, company string) []domain.Listing {
	list, _ := items.([]any)
	for _, it := range list {
		l, ok := parseItem(it, root, company)
		if ok {
			out = append(out, l)
		}
	}
	return out
}

func parseItem(item any, root, company string) (domain.Listing, bool) {
	titleNode, ok := util.FindKey(item, "title")
	if !ok {
		return domain.Listing{}, false
	}
	title := util.CleanText(util.FindString(titleNode, "text"))
	link := util.FirstNonEmpty(util.FindString(titleNode, "commandLink"), util.FindString(item, "commandLink"))
	if title == "" || link == "" {
		return domain.Listing{}, false
	}
	abs, err := util.ResolveURL(root, link)
	if err != nil {
		return domain.Listing{}, false
	}

	var location string
	if subtitles, ok := util.FindKey(item, "subtitles"); ok {
		location = primaryLocation(util.FindString(subtitles, "text"))
	}

	return domain.Listing{
		Company:  company,
		Title:    title,
		URL:      abs,
		Location: location,
	}, true
}

// primaryLocation drops the ", More..." suffix Workday adds to multi-location postings.
func primaryLocation(s string) string {
	if i := strings.Index(s, moreMarker); i >= 0 {
		s = s[:i]
	}
	return util.CleanText(s)
}

func (s *Scraper) isBlocked(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockedHost[host]
}

func (s *Scraper) markBlocked(host string) {
	s.mu.Lock()
	s.blockedHost[host] = true
	s.mu.Unlock()
	log.Printf("[ats:workday] host=%q blocked by Cloudflare; skipping remaining boards on it", host)
}

func looksLikeCloudflareBlock(resp *http.Response, bodyPreview string) bool {
	server := strings.ToLower(resp.Header.Get("Server"))
	cfRay := resp.Header.Get("CF-RAY")

	low := strings.ToLower(bodyPreview)
	challenge := strings.Contains(low, "/cdn-cgi/") ||
		(strings.Contains(low, "cloudflare") && strings.Contains(low, "checking your browser")) ||
		(strings.Contains(low, "attention required") && strings.Contains(low, "cloudflare"))

	if challenge {
		return true
	}
	// A Cloudflare edge answering 403/429 is a block, not a board problem.
	if strings.Contains(server, "cloudflare") && cfRay != "" &&
		(resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) {
		return true
	}
	return false
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
