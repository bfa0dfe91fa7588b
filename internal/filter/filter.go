// Package filter implements the ordered filter chain applied to the combined
// raw listings: title blacklist, keyword policy, location policy and
// already-seen dedup. Every stage returns a new slice and never edits a listing.
package filter

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"jobhunt-aggregator/internal/domain"
)

func foldAll(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if f := domain.Fold(x); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func foldSet(xs []string) mapset.Set[string] {
	return mapset.NewSet(foldAll(xs)...)
}

// TitleBlacklist drops a listing whose title starts with any entry,
// ignoring case. An exact match is the full-length prefix.
type TitleBlacklist struct {
	prefixes []string
}

func NewTitleBlacklist(titles []string) TitleBlacklist {
	return TitleBlacklist{prefixes: foldAll(titles)}
}

func (f TitleBlacklist) Blocks(title string) bool {
	t := domain.Fold(title)
	for _, p := range f.prefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

func (f TitleBlacklist) Apply(in []domain.Listing) []domain.Listing {
	return keep(in, func(l domain.Listing) bool { return !f.Blocks(l.Title) })
}

// KeywordPolicy has two modes. With required keywords configured, only
// titles containing one of them survive and the blacklist is not consulted.
// Otherwise titles containing a blacklisted keyword are dropped.
type KeywordPolicy struct {
	required    []string
	blacklisted []string
}

func NewKeywordPolicy(required, blacklisted []string) KeywordPolicy {
	return KeywordPolicy{required: foldAll(required), blacklisted: foldAll(blacklisted)}
}

func (p KeywordPolicy) RequiredMode() bool { return len(p.required) > 0 }

func (p KeywordPolicy) Allows(title string) bool {
	t := domain.Fold(title)
	if p.RequiredMode() {
		return containsAny(t, p.required)
	}
	return !containsAny(t, p.blacklisted)
}

func (p KeywordPolicy) Apply(in []domain.Listing) []domain.Listing {
	return keep(in, func(l domain.Listing) bool { return p.Allows(l.Title) })
}

// LocationPolicy drops listings whose whole location string is blacklisted.
// An empty location is always kept. Locations in neither list are kept and
// reported as needing classification.
type LocationPolicy struct {
	whitelist mapset.Set[string]
	blacklist mapset.Set[string]
}

func NewLocationPolicy(whitelisted, blacklisted []string) LocationPolicy {
	return LocationPolicy{whitelist: foldSet(whitelisted), blacklist: foldSet(blacklisted)}
}

// Apply returns the kept listings and the distinct unclassified locations,
// sorted, each in the spelling it was first seen with.
func (p LocationPolicy) Apply(in []domain.Listing) ([]domain.Listing, []string) {
	var unclassified []string
	reported := mapset.NewThreadUnsafeSet[string]()

	kept := keep(in, func(l domain.Listing) bool {
		loc := domain.Fold(l.Location)
		if loc == "" {
			return true
		}
		if p.blacklist.Contains(loc) {
			return false
		}
		if !p.whitelist.Contains(loc) && reported.Add(loc) {
			unclassified = append(unclassified, strings.TrimSpace(l.Location))
		}
		return true
	})
	slices.Sort(unclassified)
	return kept, unclassified
}

// AlreadySeen drops listings whose URL is in the seen set, ignoring case.
type AlreadySeen struct {
	seen mapset.Set[string]
}

func NewAlreadySeen(urls []string) AlreadySeen {
	return AlreadySeen{seen: foldSet(urls)}
}

func (f AlreadySeen) Seen(url string) bool { return f.seen.Contains(domain.Fold(url)) }

func (f AlreadySeen) Apply(in []domain.Listing) []domain.Listing {
	return keep(in, func(l domain.Listing) bool { return !f.Seen(l.URL) })
}

func keep(in []domain.Listing, pred func(domain.Listing) bool) []domain.Listing {
	out := make([]domain.Listing, 0, len(in))
	for _, l := range in {
		if pred(l) {
			out = append(out, l)
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
