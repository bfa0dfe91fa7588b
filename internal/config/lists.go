package config

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

// Lists holds the materialized filter inputs.
type Lists struct {
	BlacklistedTitles    []string
	RequiredKeywords     []string
	BlacklistedKeywords  []string
	WhitelistedLocations []string
	BlacklistedLocations []string
	AlreadySeen          []string
}

// LoadLists reads every configured list file. An unset path is an empty list;
// a configured path that does not exist is an empty list plus a warning.
func LoadLists(cfg Config) (Lists, []string, error) {
	var (
		out      Lists
		warnings []string
	)
	load := func(name, p string, dst *[]string) error {
		if p == "" {
			return nil
		}
		full := cfg.Path(p)
		xs, err := ReadListFile(full)
		if errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("lists.%s: %s does not exist; treating as empty", name, full))
			return nil
		}
		if err != nil {
			return fmt.Errorf("lists.%s: %w", name, err)
		}
		*dst = xs
		return nil
	}

	steps := []struct {
		name string
		path string
		dst  *[]string
	}{
		{"blacklisted_titles", cfg.Lists.BlacklistedTitles, &out.BlacklistedTitles},
		{"required_keywords", cfg.Lists.RequiredKeywords, &out.RequiredKeywords},
		{"blacklisted_keywords", cfg.Lists.BlacklistedKeywords, &out.BlacklistedKeywords},
		{"whitelisted_locations", cfg.Lists.WhitelistedLocations, &out.WhitelistedLocations},
		{"blacklisted_locations", cfg.Lists.BlacklistedLocations, &out.BlacklistedLocations},
		{"already_seen", cfg.Lists.AlreadySeen, &out.AlreadySeen},
	}
	for _, s := range steps {
		if err := load(s.name, s.path, s.dst); err != nil {
			return out, warnings, err
		}
	}
	for _, w := range warnings {
		log.Printf("[config] %s", w)
	}
	return out, warnings, nil
}

// ReadListFile returns trimmed non-empty lines, skipping # comments.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
