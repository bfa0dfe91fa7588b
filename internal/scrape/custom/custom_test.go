package custom

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobhunt-aggregator/internal/browser"
	"jobhunt-aggregator/internal/domain"
)

const pageURL = "https://careers.acme.test/jobs"

// fakePage serves scripted HTML. Clicking nextSel advances to the next page.
type fakePage struct {
	pages    []string
	cur      int
	nextSel  string
	slowWait map[string]bool
	clickErr map[string]error
	heights  []int64

	navigated []string
	clicks    []string
	scrolls   int
}

func (p *fakePage) Navigate(url string) error {
	p.navigated = append(p.navigated, url)
	p.cur = 0
	return nil
}

func (p *fakePage) WaitVisible(sel string, _ time.Duration) error {
	if p.slowWait[sel] {
		return fmt.Errorf("%w: wait %s", domain.ErrInteractionTimeout, sel)
	}
	return nil
}

func (p *fakePage) Click(sel string) error {
	p.clicks = append(p.clicks, sel)
	if err := p.clickErr[sel]; err != nil {
		return err
	}
	if sel == p.nextSel {
		p.cur++
	}
	return nil
}

func (p *fakePage) ClickAll(sel string) (int, error) {
	p.clicks = append(p.clicks, sel+"*")
	return 2, nil
}

func (p *fakePage) Exists(sel string) (bool, error) {
	if sel == p.nextSel {
		return p.cur < len(p.pages)-1, nil
	}
	return false, nil
}

func (p *fakePage) ScrollToBottom() (int64, error) {
	h := p.heights[min(p.scrolls, len(p.heights)-1)]
	p.scrolls++
	return h, nil
}

func (p *fakePage) HTML() (string, string, error) {
	return p.pages[p.cur], pageURL, nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	order    []*fakePage
	launches int
	closes   int
}

func (l *fakeLauncher) Launch(context.Context) (browser.Page, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.order[l.launches]
	l.launches++
	return p, func() {
		l.mu.Lock()
		l.closes++
		l.mu.Unlock()
	}, nil
}

func jobsHTML(jobs ...string) string {
	html := `<html><body><ul>`
	for _, j := range jobs {
		html += j
	}
	return html + `</ul></body></html>`
}

func job(title, href, loc string) string {
	return fmt.Sprintf(`<li class="job"><a class="title" href="%s">%s</a><span class="loc">%s</span></li>`, href, title, loc)
}

var scrapeStep = Step{Kind: StepScrape, Item: "li.job", Title: "a.title", Location: "span.loc"}

func TestDescriptorFlow(t *testing.T) {
	d := Descriptor{
		Company:           "Acme",
		CareersURL:        pageURL,
		ItemSelector:      "a.posting",
		PrerequisiteClick: "#accept-cookies",
	}
	page := &fakePage{pages: []string{
		`<div><a class="posting" href="/jobs/1"> Software   Intern </a><a class="posting" href="https://other.test/2">Data Intern</a></div>`,
	}}

	flow := d.Flow()
	require.NoError(t, flow.Validate())

	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []domain.Listing{
		{Company: "Acme", Title: "Software Intern", URL: "https://careers.acme.test/jobs/1", Location: ""},
		{Company: "Acme", Title: "Data Intern", URL: "https://other.test/2", Location: ""},
	}, got)
	assert.Equal(t, []string{pageURL}, page.navigated)
	assert.Equal(t, []string{"#accept-cookies"}, page.clicks)
}

func TestFlow_PaginatesAndDedupes(t *testing.T) {
	page := &fakePage{
		nextSel: "button.next",
		pages: []string{
			jobsHTML(job("A", "/a", "Remote"), job("B", "/b", "Boise")),
			jobsHTML(job("B", "/b", "Boise"), job("C", "/c", "Toronto")),
			jobsHTML(job("D", "/d", "")),
		},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		{Kind: StepWait, Selector: "li.job"},
		scrapeStep,
		{Kind: StepNextPage, Selector: "button.next", Settle: time.Millisecond},
	}

	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.NoError(t, err)

	var titles []string
	for _, l := range got {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, titles)
	assert.Equal(t, []string{"button.next", "button.next"}, page.clicks)
}

func TestFlow_NextPageRespectsMax(t *testing.T) {
	page := &fakePage{
		nextSel: "button.next",
		pages: []string{
			jobsHTML(job("A", "/a", "")),
			jobsHTML(job("B", "/b", "")),
			jobsHTML(job("C", "/c", "")),
		},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		scrapeStep,
		{Kind: StepNextPage, Selector: "button.next", Max: 1, Settle: time.Millisecond},
	}
	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFlow_FailureBeforeFiltersKeepsPartialResults(t *testing.T) {
	page := &fakePage{
		pages:    []string{jobsHTML(job("A", "/a", "Remote"))},
		clickErr: map[string]error{"#load-more": fmt.Errorf("%w: no node", domain.ErrMarkupMismatch)},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		scrapeStep,
		{Kind: StepClick, Selector: "#load-more"},
		scrapeStep,
	}
	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.Error(t, err)
	assert.Equal(t, domain.KindMarkupMismatch, domain.Classify(err))
	assert.Len(t, got, 1)
}

func TestFlow_OptionalClickIgnored(t *testing.T) {
	page := &fakePage{
		pages:    []string{jobsHTML(job("A", "/a", ""))},
		clickErr: map[string]error{"#banner": errors.New("not visible")},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		{Kind: StepClick, Selector: "#banner", Optional: true},
		scrapeStep,
	}
	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFlow_FailureAfterPartialSelectDiscards(t *testing.T) {
	page := &fakePage{
		pages:    []string{jobsHTML(job("A", "/a", "Remote"))},
		clickErr: map[string]error{"#team-eng": fmt.Errorf("%w: no node", domain.ErrMarkupMismatch)},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		scrapeStep,
		{Kind: StepSelect, Selectors: []string{"#type-intern", "#team-eng"}},
		scrapeStep,
	}
	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, domain.KindPartialInteraction, domain.Classify(err))
	assert.ErrorIs(t, err, domain.ErrMarkupMismatch)
}

func TestFlow_WaitTimeoutAfterFilterDiscards(t *testing.T) {
	page := &fakePage{
		pages:    []string{jobsHTML(job("A", "/a", ""))},
		slowWait: map[string]bool{"li.job": true},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		{Kind: StepClickFilter, Selector: "#interns"},
		{Kind: StepWait, Selector: "li.job"},
		scrapeStep,
	}
	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	assert.Nil(t, got)
	assert.Equal(t, domain.KindPartialInteraction, domain.Classify(err))
	assert.ErrorIs(t, err, domain.ErrInteractionTimeout)
}

func TestFlow_WaitTimeoutWithoutFilter(t *testing.T) {
	page := &fakePage{
		pages:    []string{jobsHTML()},
		slowWait: map[string]bool{"li.job": true},
	}
	flow := Flow{{Kind: StepNavigate, URL: pageURL}, {Kind: StepWait, Selector: "li.job"}, scrapeStep}
	_, err := flow.Run(context.Background(), page, "Acme", time.Second)
	assert.Equal(t, domain.KindInteractionTimeout, domain.Classify(err))
}

func TestFlow_NoListingsIsMarkupMismatch(t *testing.T) {
	page := &fakePage{pages: []string{`<html><body><p>We moved!</p></body></html>`}}
	flow := Flow{{Kind: StepNavigate, URL: pageURL}, scrapeStep}
	got, err := flow.Run(context.Background(), page, "Acme", time.Second)
	assert.Empty(t, got)
	assert.Equal(t, domain.KindMarkupMismatch, domain.Classify(err))
}

func TestFlow_ScrollStopsWhenHeightSettles(t *testing.T) {
	page := &fakePage{
		pages:   []string{jobsHTML(job("A", "/a", ""))},
		heights: []int64{1000, 2000, 2000, 3000},
	}
	flow := Flow{
		{Kind: StepNavigate, URL: pageURL},
		{Kind: StepScroll, Settle: time.Millisecond},
		{Kind: StepExpand, Selector: "button.more-locations", Settle: time.Millisecond},
		scrapeStep,
	}
	_, err := flow.Run(context.Background(), page, "Acme", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, page.scrolls)
	assert.Equal(t, []string{"button.more-locations*"}, page.clicks)
}

func TestFlow_CancelledContextIsTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &fakePage{pages: []string{jobsHTML(job("A", "/a", ""))}}
	_, err := Flow{{Kind: StepNavigate, URL: pageURL}, scrapeStep}.Run(ctx, page, "Acme", time.Second)
	assert.Equal(t, domain.KindInteractionTimeout, domain.Classify(err))
}

func TestFlowValidate(t *testing.T) {
	tests := []struct {
		name string
		flow Flow
	}{
		{"empty", nil},
		{"no navigate first", Flow{scrapeStep}},
		{"no scrape", Flow{{Kind: StepNavigate, URL: pageURL}}},
		{"next before scrape", Flow{{Kind: StepNavigate, URL: pageURL}, {Kind: StepNextPage, Selector: "a"}, scrapeStep}},
		{"select without selectors", Flow{{Kind: StepNavigate, URL: pageURL}, {Kind: StepSelect}, scrapeStep}},
		{"unknown", Flow{{Kind: StepNavigate, URL: pageURL}, {Kind: "hover"}, scrapeStep}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.flow.Validate(), ErrInvalidFlow)
		})
	}
}

func TestExtract_JoinsLocationsAndUsesLinkSelector(t *testing.T) {
	html := `<div class="row"><h3>Platform Intern</h3><a class="apply" href="/apply/9">Apply</a>
		<span class="city">Austin</span><span class="city">Remote</span></div>
		<div class="row"><h3>No Link</h3></div>`
	got, err := Extract(html, pageURL, Step{Item: "div.row", Title: "h3", Link: "a.apply", Location: "span.city"}, "Acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://careers.acme.test/apply/9", got[0].URL)
	assert.Equal(t, "Austin; Remote", got[0].Location)
}

func TestExtract_DropsNonHTTPLinks(t *testing.T) {
	html := `<ul>
		<li class="job"><a href="javascript:void(0)">Software Intern</a></li>
		<li class="job"><a href="mailto:jobs@acme.com">Data Intern</a></li>
		<li class="job"><a href="/jobs/7">Legal Intern</a></li>
	</ul>`
	got, err := Extract(html, pageURL, Step{Item: "li.job"}, "Acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Legal Intern", got[0].Title)
	assert.Equal(t, "https://careers.acme.test/jobs/7", got[0].URL)
}

func TestScraper_ClosesBrowserOnEveryPath(t *testing.T) {
	ok := &fakePage{pages: []string{jobsHTML(job("A", "/a", ""))}}
	broken := &fakePage{pages: []string{jobsHTML()}, slowWait: map[string]bool{"li.job": true}}
	launcher := &fakeLauncher{order: []*fakePage{ok, broken}}

	s, err := New(Config{
		Launcher: launcher,
		Sites: []Site{
			{Company: "Acme", Flow: Flow{{Kind: StepNavigate, URL: pageURL}, scrapeStep}},
			{Company: "Globex", Flow: Flow{{Kind: StepNavigate, URL: pageURL}, {Kind: StepWait, Selector: "li.job"}, scrapeStep}},
		},
	})
	require.NoError(t, err)
	s.cfg.Pool.Workers = 1

	res := s.Fetch(context.Background())
	assert.Len(t, res.Listings, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "Globex", res.Failures[0].Company)
	assert.Equal(t, domain.KindInteractionTimeout, res.Failures[0].Kind)
	assert.Equal(t, 2, launcher.launches)
	assert.Equal(t, 2, launcher.closes)
}

func TestNew_RejectsInvalidFlow(t *testing.T) {
	_, err := New(Config{Sites: []Site{{Company: "Acme", Flow: Flow{scrapeStep}}}})
	assert.ErrorIs(t, err, ErrInvalidFlow)
}
