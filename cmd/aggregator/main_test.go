package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configPath, seenFrom, validateWrite = "", "", false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInitThenValidate(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "config.yml"))

	out, err = execute(t, "validate", "--config", filepath.Join(dir, "config.yml"))
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, err = execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestSeenAdd_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "init", dir)
	require.NoError(t, err)
	cfgPath := filepath.Join(dir, "config.yml")

	report := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(report, []byte("Company,Title,Link,Location\nAsana,Intern,https://x/1,Remote\nPlaid,Intern,https://x/2,\n"), 0o644))

	out, err := execute(t, "seen", "add", "--config", cfgPath, "--from", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Marked 2 new links")

	out, err = execute(t, "seen", "add", "--config", cfgPath, "--from", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Marked 0 new links")
}

func TestResolveConfigPath_Env(t *testing.T) {
	t.Setenv(configEnv, "/etc/jobagg.yml")
	configPath = ""
	assert.Equal(t, "/etc/jobagg.yml", resolveConfigPath())
	configPath = "mine.yml"
	defer func() { configPath = "" }()
	assert.Equal(t, "mine.yml", resolveConfigPath())
}
