package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"jobhunt-aggregator/internal/domain"
)

// SortFailures orders failures by source, then company.
func SortFailures(in []domain.Failure) []domain.Failure {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b domain.Failure) int {
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return strings.Compare(a.Company, b.Company)
	})
	return out
}

// WriteDiagnostics prints the failed boards and the locations that are in
// neither location list.
func WriteDiagnostics(w io.Writer, failures []domain.Failure, unclassified []string) error {
	var b strings.Builder
	for _, f := range SortFailures(failures) {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	if len(unclassified) > 0 {
		b.WriteString("Add each location to the whitelist or blacklist:\n")
		for _, loc := range unclassified {
			fmt.Fprintf(&b, "\t%q,\n", loc)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Summary is the per-run tally printed after the report is written.
type Summary struct {
	RunID          string
	Output         string
	Raw            int
	AfterTitles    int
	AfterKeywords  int
	AfterLocations int
	Written        int
	Failures       int
	Unclassified   int
}

func (s Summary) String() string {
	return fmt.Sprintf("run=%s raw=%d after_titles=%d after_keywords=%d after_locations=%d written=%d failures=%d unclassified=%d output=%s",
		s.RunID, s.Raw, s.AfterTitles, s.AfterKeywords, s.AfterLocations, s.Written, s.Failures, s.Unclassified, s.Output)
}
