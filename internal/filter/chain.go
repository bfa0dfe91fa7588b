package filter

import (
	"log"

	"jobhunt-aggregator/internal/domain"
)

// Lists is the materialized filter configuration.
type Lists struct {
	BlacklistedTitles    []string
	RequiredKeywords     []string
	BlacklistedKeywords  []string
	WhitelistedLocations []string
	BlacklistedLocations []string
	AlreadySeen          []string
}

type Chain struct {
	Titles    TitleBlacklist
	Keywords  KeywordPolicy
	Locations LocationPolicy
	Seen      AlreadySeen
}

func NewChain(l Lists) Chain {
	return Chain{
		Titles:    NewTitleBlacklist(l.BlacklistedTitles),
		Keywords:  NewKeywordPolicy(l.RequiredKeywords, l.BlacklistedKeywords),
		Locations: NewLocationPolicy(l.WhitelistedLocations, l.BlacklistedLocations),
		Seen:      NewAlreadySeen(l.AlreadySeen),
	}
}

// Counts is the number of listings left after each stage.
type Counts struct {
	Raw            int
	AfterTitles    int
	AfterKeywords  int
	AfterLocations int
	AfterSeen      int
}

type Result struct {
	Listings            []domain.Listing
	NeedsClassification []string
	Counts              Counts
}

// Apply runs the four stages in order.
func (c Chain) Apply(raw []domain.Listing) Result {
	var res Result
	res.Counts.Raw = len(raw)

	out := c.Titles.Apply(raw)
	res.Counts.AfterTitles = len(out)

	out = c.Keywords.Apply(out)
	res.Counts.AfterKeywords = len(out)

	out, res.NeedsClassification = c.Locations.Apply(out)
	res.Counts.AfterLocations = len(out)

	out = c.Seen.Apply(out)
	res.Counts.AfterSeen = len(out)

	res.Listings = out
	log.Printf("[filter] raw=%d titles=%d keywords=%d locations=%d seen=%d unclassified=%d",
		res.Counts.Raw, res.Counts.AfterTitles, res.Counts.AfterKeywords,
		res.Counts.AfterLocations, res.Counts.AfterSeen, len(res.NeedsClassification))
	return res
}
