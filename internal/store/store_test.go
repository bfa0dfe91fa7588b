package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "seen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMarkSeen_LowercasesAndIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	added, err := db.MarkSeen(ctx, []SeenLink{
		{URL: "https://Boards.Greenhouse.io/acme/jobs/1", Company: "Acme", Title: "Software Intern"},
		{URL: "https://jobs.lever.co/plaid/2"},
		{URL: "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = db.MarkSeen(ctx, []SeenLink{{URL: "HTTPS://BOARDS.GREENHOUSE.IO/ACME/JOBS/1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	urls, err := db.SeenURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://boards.greenhouse.io/acme/jobs/1", "https://jobs.lever.co/plaid/2"}, urls)

	links, err := db.ListSeen(ctx, 1)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.False(t, links[0].AddedAt.IsZero())
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, Migrate(context.Background(), db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}
