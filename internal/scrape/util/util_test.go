package util

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"jobhunt-aggregator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestFindKey_NestedAtVariableDepth(t *testing.T) {
	tree := decode(t, `{"body":{"children":[{"widget":"header"},{"children":[{"listItems":[1,2]}]}]}}`)

	v, ok := FindKey(tree, "listItems")
	require.True(t, ok)
	assert.Len(t, v, 2)

	_, ok = FindKey(tree, "missing")
	assert.False(t, ok)
}

func TestFindKey_ShallowestWins(t *testing.T) {
	tree := decode(t, `{"a":{"text":"deep"},"text":"top"}`)
	assert.Equal(t, "top", FindString(tree, "text"))
}

func TestFindKey_DeterministicAcrossSiblings(t *testing.T) {
	tree := decode(t, `{"zeta":{"text":"z"},"alpha":{"text":"a"}}`)
	for i := 0; i < 20; i++ {
		assert.Equal(t, "a", FindString(tree, "text"))
	}
}

func TestFindKey_DepthBound(t *testing.T) {
	var tree any = map[string]any{"needle": true}
	for i := 0; i < MaxJSONDepth+5; i++ {
		tree = []any{tree}
	}
	_, ok := FindKey(tree, "needle")
	assert.False(t, ok)
}

func TestFindObject(t *testing.T) {
	tree := decode(t, `{"endPoints":[{"type":"Search","uri":"/s"},{"type":"Pagination","uri":"/p/123"}]}`)
	m, ok := FindObject(tree, func(m map[string]any) bool { return m["type"] == "Pagination" })
	require.True(t, ok)
	assert.Equal(t, "/p/123", m["uri"])
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://boards.greenhouse.io/", "/vimeo/jobs/123", "https://boards.greenhouse.io/vimeo/jobs/123"},
		{"https://jobs.lever.co/", "https://jobs.lever.co/figma/abc", "https://jobs.lever.co/figma/abc"},
		{"https://acme.com/careers/", "openings/42", "https://acme.com/careers/openings/42"},
	}
	for _, tt := range tests {
		got, err := ResolveURL(tt.base, tt.href)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.True(t, IsAbsoluteURL(got))
	}

	_, err := ResolveURL("not a base", "/x")
	assert.Error(t, err)
	_, err = ResolveURL("https://a.com", "  ")
	assert.Error(t, err)

	for _, href := range []string{"javascript:void(0)", "mailto:jobs@acme.com", "ftp://files.acme.com/jobs"} {
		_, err := ResolveURL("https://acme.com/careers/", href)
		assert.Error(t, err, href)
	}
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("HTTPS://acme.com/jobs/1"))
	assert.False(t, IsAbsoluteURL("javascript:void(0)"))
	assert.False(t, IsAbsoluteURL("mailto:jobs@acme.com"))
	assert.False(t, IsAbsoluteURL("/jobs/1"))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", Truncate(" short\n", 10))
	got := Truncate("Zürich, Schweiz", 2)
	assert.Equal(t, "Z...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Zü...", Truncate("Zürich", 3))
}

func TestOrigin(t *testing.T) {
	o, err := Origin("https://acme.wd5.myworkdayjobs.com/en-US/Careers?q=1")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.wd5.myworkdayjobs.com", o)

	_, err = Origin("/relative")
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Software Intern", CleanText("\n  Software  Intern \t"))
}

func TestFetchBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	h := http.Header{}
	h.Set("Accept", "application/json")
	body, err := FetchBody(context.Background(), srv.Client(), NewHostLimiter(0, 1), srv.URL+"/up", h)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	_, err = FetchBody(context.Background(), srv.Client(), nil, srv.URL+"/down", h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "503")
}

func TestHostLimiterPerHost(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	assert.Same(t, hl.limiterFor("a.com"), hl.limiterFor("a.com"))
	assert.NotSame(t, hl.limiterFor("a.com"), hl.limiterFor("b.com"))

	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.WaitURL(context.Background(), "https://a.com"))
}

func TestStripTracking(t *testing.T) {
	assert.Equal(t,
		"https://jobs.lever.co/acme/1?lever-source=alert",
		StripTracking("https://jobs.lever.co/acme/1?utm_source=mail&lever-source=alert&gclid=x#apply"))
	assert.Equal(t, "not a url", StripTracking("not a url"))
}
