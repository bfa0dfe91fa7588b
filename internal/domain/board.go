package domain

import "strings"

// Board is one company's job board on a templated platform.
type Board struct {
	Company string
	Link    string // overrides the slug; for Workday it is the full board URL
}

// Slug is the path segment used to build the platform URL: Link when set,
// otherwise the company name lowercased with spaces removed.
func (b Board) Slug() string {
	if l := strings.TrimSpace(b.Link); l != "" {
		return l
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(b.Company), " ", ""))
}
