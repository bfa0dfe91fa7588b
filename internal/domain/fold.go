package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Fold returns the caseless key for s. All case-insensitive comparisons in the
// pipeline (titles, keywords, locations, seen links) go through it.
func Fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}
