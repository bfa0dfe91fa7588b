package greenhouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/util"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classicBoard = `
<html><body>
<section class="level-0">
  <h3>Engineering</h3>
  <div class="opening">
    <a href="/vimeo/jobs/101">  Software Engineering Intern  </a>
    <span class="location">
      New York, NY
    </span>
  </div>
  <div class="opening">
    <a href="/vimeo/jobs/102">Data Intern</a>
  </div>
</section>
<section class="level-0">
  <div class="opening">
    <a href="https://boards.greenhouse.io/vimeo/jobs/103">Legal Intern</a>
    <span class="location">Remote</span>
  </div>
  <div class="opening"><span class="location">Broken row</span></div>
</section>
</body></html>`

const newBoard = `
<table><tr class="job-post"><td>
  <a href="https://job-boards.greenhouse.io/acme/jobs/9">
    <p class="body--medium">Platform Intern</p>
    <p class="body--metadata">Austin, TX</p>
  </a>
</td></tr></table>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseBoard_Classic(t *testing.T) {
	got := ParseBoard(parse(t, classicBoard), "Vimeo", RootURL)

	require.Len(t, got, 3)
	assert.Equal(t, domain.Listing{
		Company:  "Vimeo",
		Title:    "Software Engineering Intern",
		URL:      "https://boards.greenhouse.io/vimeo/jobs/101",
		Location: "New York, NY",
	}, got[0])
	assert.Equal(t, "", got[1].Location)
	assert.Equal(t, "https://boards.greenhouse.io/vimeo/jobs/103", got[2].URL)
	for _, l := range got {
		assert.True(t, util.IsAbsoluteURL(l.URL), l.URL)
	}
}

func TestParseBoard_JobPostRows(t *testing.T) {
	got := ParseBoard(parse(t, newBoard), "Acme", RootURL)
	require.Len(t, got, 1)
	assert.Equal(t, "Platform Intern", got[0].Title)
	assert.Equal(t, "Austin, TX", got[0].Location)
}

func TestFetch_SlugsAndFailureIsolation(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/vimeointernships", "/asana":
			_, _ = w.Write([]byte(classicBoard))
		case "/drifted":
			_, _ = w.Write([]byte(`<html><body><div class="new-layout"></div></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New(Config{
		RootURL: srv.URL,
		Boards: []domain.Board{
			{Company: "Asana"},
			{Company: "Drifted"},
			{Company: "Gone Co"},
			{Company: "Vimeo", Link: "vimeointernships"},
		},
	}, nil)
	s.cfg.Pool.Workers = 1

	res := s.Fetch(context.Background())

	assert.Equal(t, "greenhouse", res.Source)
	assert.Len(t, res.Listings, 6)
	assert.Equal(t, "Asana", res.Listings[0].Company)
	assert.Equal(t, "Vimeo", res.Listings[5].Company)
	assert.True(t, strings.HasPrefix(res.Listings[0].URL, srv.URL+"/vimeo/jobs/"))
	assert.Contains(t, paths, "/goneco")

	require.Len(t, res.Failures, 2)
	assert.Equal(t, "Drifted", res.Failures[0].Company)
	assert.Equal(t, domain.KindMarkupMismatch, res.Failures[0].Kind)
	assert.Equal(t, "Gone Co", res.Failures[1].Company)
	assert.Equal(t, domain.KindSourceUnavailable, res.Failures[1].Kind)
}
