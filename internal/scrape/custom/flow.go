package custom

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"jobhunt-aggregator/internal/browser"
	"jobhunt-aggregator/internal/domain"
)

type StepKind string

const (
	StepNavigate    StepKind = "navigate"
	StepWait        StepKind = "wait"
	StepClick       StepKind = "click"
	StepExpand      StepKind = "expand"
	StepSelect      StepKind = "select"
	StepClickFilter StepKind = "click_filter"
	StepScrape      StepKind = "scrape"
	StepNextPage    StepKind = "next_page"
	StepScroll      StepKind = "scroll"
)

const (
	DefaultWaitTimeout = 10 * time.Second
	defaultMaxPages    = 50
	defaultMaxScrolls  = 20
	defaultSettle      = 750 * time.Millisecond
)

// Step is one state of a site flow. Which fields apply depends on Kind.
type Step struct {
	Kind      StepKind
	URL       string        // navigate
	Selector  string        // wait, click, expand, click_filter, next_page
	Selectors []string      // select
	Optional  bool          // click: a missing element is not an error
	Timeout   time.Duration // wait
	Max       int           // next_page, scroll
	Settle    time.Duration // next_page, scroll

	// scrape
	Item     string
	Title    string
	Link     string
	Location string
}

// mutating steps change what the page shows; once one has run, a failure
// leaves the page in an unknown filter state.
func (s Step) mutating() bool {
	return s.Kind == StepSelect || s.Kind == StepClickFilter
}

func (s Step) String() string {
	switch s.Kind {
	case StepNavigate:
		return fmt.Sprintf("%s %s", s.Kind, s.URL)
	case StepSelect:
		return fmt.Sprintf("%s %v", s.Kind, s.Selectors)
	case StepScrape:
		return fmt.Sprintf("%s %s", s.Kind, s.Item)
	case StepScroll:
		return string(s.Kind)
	default:
		return fmt.Sprintf("%s %s", s.Kind, s.Selector)
	}
}

// Flow is an ordered list of steps interpreted as a state machine.
// next_page loops back to the nearest preceding scrape (or the wait right
// before it) while its selector is present.
type Flow []Step

var ErrInvalidFlow = errors.New("invalid flow")

func (f Flow) Validate() error {
	if len(f) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidFlow)
	}
	if f[0].Kind != StepNavigate {
		return fmt.Errorf("%w: first step must be navigate, got %s", ErrInvalidFlow, f[0].Kind)
	}
	scraped := false
	for i, s := range f {
		var err error
		switch s.Kind {
		case StepNavigate:
			if s.URL == "" {
				err = errors.New("navigate needs url")
			}
		case StepWait, StepClick, StepExpand, StepClickFilter:
			if s.Selector == "" {
				err = fmt.Errorf("%s needs selector", s.Kind)
			}
		case StepSelect:
			if len(s.Selectors) == 0 {
				err = errors.New("select needs selectors")
			}
		case StepScrape:
			if s.Item == "" {
				err = errors.New("scrape needs item selector")
			}
			scraped = true
		case StepNextPage:
			if s.Selector == "" {
				err = errors.New("next_page needs selector")
			} else if !scraped {
				err = errors.New("next_page must follow a scrape step")
			}
		case StepScroll:
		default:
			err = fmt.Errorf("unknown step kind %q", s.Kind)
		}
		if err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidFlow, i, err)
		}
	}
	if !scraped {
		return fmt.Errorf("%w: no scrape step", ErrInvalidFlow)
	}
	return nil
}

type machine struct {
	page        browser.Page
	company     string
	waitTimeout time.Duration

	out     []domain.Listing
	seen    mapset.Set[string]
	mutated bool
}

// Run drives page through the flow and returns the collected listings.
//
// On failure before any mutating step the listings gathered so far are
// returned with the error. After a mutating step has run they are discarded
// and the error wraps ErrPartialInteraction.
func (f Flow) Run(ctx context.Context, page browser.Page, company string, waitTimeout time.Duration) ([]domain.Listing, error) {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	m := &machine{
		page:        page,
		company:     company,
		waitTimeout: waitTimeout,
		seen:        mapset.NewThreadUnsafeSet[string](),
	}

	lastScrape := -1
	turns := map[int]int{}

	for pc := 0; pc < len(f); {
		st := f[pc]
		if err := ctx.Err(); err != nil {
			return m.fail(pc, st, fmt.Errorf("%w: %v", domain.ErrInteractionTimeout, err))
		}

		next := pc + 1
		var err error
		switch st.Kind {
		case StepNavigate:
			err = page.Navigate(st.URL)
		case StepWait:
			timeout := st.Timeout
			if timeout <= 0 {
				timeout = m.waitTimeout
			}
			err = page.WaitVisible(st.Selector, timeout)
		case StepClick:
			err = page.Click(st.Selector)
			if err != nil && st.Optional {
				log.Printf("[custom] company=%q optional click %s skipped: %v", company, st.Selector, err)
				err = nil
			}
		case StepExpand:
			var n int
			n, err = page.ClickAll(st.Selector)
			if err == nil && n > 0 {
				err = sleep(ctx, settleOr(st.Settle))
			}
		case StepSelect:
			for _, sel := range st.Selectors {
				if err = page.Click(sel); err != nil {
					break
				}
				m.mutated = true
			}
		case StepClickFilter:
			if err = page.Click(st.Selector); err == nil {
				m.mutated = true
			}
		case StepScrape:
			lastScrape = pc
			err = m.scrape(st)
		case StepNextPage:
			limit := st.Max
			if limit <= 0 {
				limit = defaultMaxPages
			}
			if turns[pc] >= limit {
				break
			}
			var more bool
			more, err = page.Exists(st.Selector)
			if err != nil || !more {
				break
			}
			if err = page.Click(st.Selector); err != nil {
				break
			}
			turns[pc]++
			if err = sleep(ctx, settleOr(st.Settle)); err != nil {
				break
			}
			next = loopTarget(f, lastScrape)
		case StepScroll:
			err = m.scroll(ctx, st)
		}

		if err != nil {
			return m.fail(pc, st, err)
		}
		pc = next
	}

	if len(m.out) == 0 {
		return nil, fmt.Errorf("%w: flow finished without listings", domain.ErrMarkupMismatch)
	}
	return m.out, nil
}

func (m *machine) fail(pc int, st Step, err error) ([]domain.Listing, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", domain.ErrInteractionTimeout, err)
	}
	if m.mutated {
		log.Printf("[custom] company=%q step=%d (%s) failed after filters were applied; discarding %d listings",
			m.company, pc, st, len(m.out))
		return nil, fmt.Errorf("%w: step %d (%s): %w", domain.ErrPartialInteraction, pc, st, err)
	}
	return m.out, fmt.Errorf("step %d (%s): %w", pc, st, err)
}

func (m *machine) scrape(st Step) error {
	html, pageURL, err := m.page.HTML()
	if err != nil {
		return err
	}
	listings, err := Extract(html, pageURL, st, m.company)
	if err != nil {
		return err
	}
	for _, l := range listings {
		if m.seen.Contains(l.URL) {
			continue
		}
		m.seen.Add(l.URL)
		m.out = append(m.out, l)
	}
	return nil
}

// scroll keeps scrolling to the bottom until the document stops growing.
func (m *machine) scroll(ctx context.Context, st Step) error {
	limit := st.Max
	if limit <= 0 {
		limit = defaultMaxScrolls
	}
	var prev int64 = -1
	for i := 0; i < limit; i++ {
		h, err := m.page.ScrollToBottom()
		if err != nil {
			return err
		}
		if h <= prev {
			return nil
		}
		prev = h
		if err := sleep(ctx, settleOr(st.Settle)); err != nil {
			return err
		}
	}
	return nil
}

func loopTarget(f Flow, scrape int) int {
	if scrape > 0 && f[scrape-1].Kind == StepWait {
		return scrape - 1
	}
	return scrape
}

func settleOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return defaultSettle
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
