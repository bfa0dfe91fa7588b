package domain

// Listing is one normalized job posting.
//
// Company is the name from configuration, never the name scraped from the page,
// so sorting and grouping stay stable when a board renders a different display name.
// Location is "" when the source has none; callers treat "" as unknown.
type Listing struct {
	Company  string
	Title    string
	URL      string
	Location string
}
