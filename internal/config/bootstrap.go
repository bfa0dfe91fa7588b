package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
)

//go:embed default.yml
var defaultConfig []byte

// EnsureDefault writes a starter config and empty list files into dir unless
// they already exist. It returns the config path and the files it created.
func EnsureDefault(dir string) (string, []string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	cfgPath := filepath.Join(dir, "config.yml")

	var created []string
	ok, err := writeIfMissing(cfgPath, defaultConfig)
	if err != nil {
		return "", nil, err
	}
	if ok {
		created = append(created, cfgPath)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		return cfgPath, created, err
	}
	for _, p := range []string{
		cfg.Lists.BlacklistedTitles,
		cfg.Lists.RequiredKeywords,
		cfg.Lists.BlacklistedKeywords,
		cfg.Lists.WhitelistedLocations,
		cfg.Lists.BlacklistedLocations,
		cfg.Lists.AlreadySeen,
	} {
		if p == "" {
			continue
		}
		full := cfg.Path(p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return cfgPath, created, err
		}
		ok, err := writeIfMissing(full, []byte("# one entry per line\n"))
		if err != nil {
			return cfgPath, created, err
		}
		if ok {
			created = append(created, full)
		}
	}
	return cfgPath, created, nil
}

func writeIfMissing(path string, content []byte) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
