package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobhunt-aggregator/internal/config"
	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/report"
	"jobhunt-aggregator/internal/runlock"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/store"
)

type staticFetcher types.ScrapeResult

func (s staticFetcher) Name() string { return s.Source }

func (s staticFetcher) Fetch(context.Context) types.ScrapeResult { return types.ScrapeResult(s) }

func writeList(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	require.NoError(t, os.WriteFile(p, b.Bytes(), 0o644))
	return name
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	cfg := config.Config{Output: "report.csv", Dir: dir}
	config.ApplyDefaults(&cfg)
	cfg.Lists.BlacklistedTitles = writeList(t, dir, "titles.txt", "Senior")
	cfg.Lists.RequiredKeywords = writeList(t, dir, "required.txt", "intern")
	cfg.Lists.WhitelistedLocations = writeList(t, dir, "wl.txt", "Remote")
	cfg.Lists.BlacklistedLocations = writeList(t, dir, "bl.txt", "London")
	cfg.Lists.AlreadySeen = writeList(t, dir, "seen.txt", "https://x/seen")
	return cfg
}

func TestRun_FiltersAndWritesReport(t *testing.T) {
	cfg := testConfig(t)
	fetchers := []types.Fetcher{
		staticFetcher{
			Source: "lever",
			Listings: []domain.Listing{
				{Company: "Plaid", Title: "Software Intern", URL: "https://x/1", Location: "Remote"},
				{Company: "Plaid", Title: "Senior Intern", URL: "https://x/2", Location: "Remote"},
				{Company: "Plaid", Title: "Data Intern", URL: "https://x/3", Location: "London"},
				{Company: "Plaid", Title: "Design Intern", URL: "https://x/seen", Location: "Remote"},
			},
			Failures: []domain.Failure{{Source: "lever", Company: "Brex", Kind: domain.KindSourceUnavailable, Reason: "503"}},
		},
		staticFetcher{
			Source: "greenhouse",
			Listings: []domain.Listing{
				{Company: "Asana", Title: "Backend Intern", URL: "https://x/4", Location: "Boston"},
				{Company: "Asana", Title: "Product Manager", URL: "https://x/5", Location: "Remote"},
			},
		},
	}

	var diag bytes.Buffer
	sum, err := Run(context.Background(), cfg, Options{RunID: "r1", Fetchers: fetchers, Diagnostics: &diag})
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Raw)
	assert.Equal(t, 5, sum.AfterTitles)
	assert.Equal(t, 4, sum.AfterKeywords)
	assert.Equal(t, 3, sum.AfterLocations)
	assert.Equal(t, 2, sum.Written)
	assert.Equal(t, 1, sum.Failures)
	assert.Equal(t, 1, sum.Unclassified)

	f, err := os.Open(cfg.Path("report.csv"))
	require.NoError(t, err)
	defer f.Close()
	links, err := report.ReadLinks(f)
	require.NoError(t, err)
	// Sorted by company; unclassified locations are kept and reported.
	assert.Equal(t, []string{"https://x/4", "https://x/1"}, links)

	assert.Contains(t, diag.String(), "Brex")
	assert.Contains(t, diag.String(), `"Boston",`)
}

func TestRun_SeenDBIsUnionedWithList(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeenDB = "seen.db"

	db, err := store.Open(context.Background(), cfg.Path(cfg.SeenDB))
	require.NoError(t, err)
	_, err = db.MarkSeen(context.Background(), []store.SeenLink{{URL: "HTTPS://X/1"}})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	fetchers := []types.Fetcher{staticFetcher{Source: "lever", Listings: []domain.Listing{
		{Company: "Plaid", Title: "Software Intern", URL: "https://x/1", Location: "Remote"},
		{Company: "Plaid", Title: "Platform Intern", URL: "https://x/9", Location: "Remote"},
	}}}

	sum, err := Run(context.Background(), cfg, Options{Fetchers: fetchers, Diagnostics: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Written)
}

func TestRun_NoSourcesWritesHeaderOnly(t *testing.T) {
	cfg := testConfig(t)
	sum, err := Run(context.Background(), cfg, Options{Fetchers: []types.Fetcher{}, Diagnostics: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Zero(t, sum.Written)

	b, err := os.ReadFile(cfg.Path("report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Company,Title,Link,Location\n", string(b))
}

func TestRun_RefusesConcurrentRun(t *testing.T) {
	cfg := testConfig(t)
	lock, err := runlock.Acquire(cfg.Path(cfg.Output))
	require.NoError(t, err)
	defer lock.Release()

	_, err = Run(context.Background(), cfg, Options{Fetchers: []types.Fetcher{}, Diagnostics: &bytes.Buffer{}})
	assert.ErrorIs(t, err, runlock.ErrLocked)
}
