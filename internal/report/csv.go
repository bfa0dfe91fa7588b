// Package report writes the final listings and tells the operator what went
// wrong during the run.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"jobhunt-aggregator/internal/domain"
)

var Header = []string{"Company", "Title", "Link", "Location"}

// SortByCompany orders listings by company ascending. Ties keep their input order.
func SortByCompany(in []domain.Listing) []domain.Listing {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b domain.Listing) int {
		return strings.Compare(a.Company, b.Company)
	})
	return out
}

// WriteCSV writes the header and one row per listing, sorted by company.
func WriteCSV(w io.Writer, listings []domain.Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, l := range SortByCompany(listings) {
		if err := cw.Write([]string{l.Company, l.Title, l.URL, l.Location}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV next to path and renames it into place, so a
// reader never sees a half-written report.
func WriteFile(path string, listings []domain.Listing) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, listings); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadLinks returns the Link column of a report written by WriteCSV.
func ReadLinks(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := slices.Index(rows[0], "Link")
	if col < 0 {
		return nil, fmt.Errorf("no Link column in header %v", rows[0])
	}
	var out []string
	for _, row := range rows[1:] {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			out = append(out, strings.TrimSpace(row[col]))
		}
	}
	return out, nil
}
