package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type SeenLink struct {
	URL     string
	Company string
	Title   string
	AddedAt time.Time
}

// MarkSeen stores links lower-cased; existing links are left untouched.
// It returns how many were new.
func (d *DB) MarkSeen(ctx context.Context, links []SeenLink) (added int, err error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO seen_links (url, company, title, added_at)
VALUES (?, ?, ?, ?);`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, l := range links {
		u := strings.ToLower(strings.TrimSpace(l.URL))
		if u == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, u, strings.TrimSpace(l.Company), strings.TrimSpace(l.Title), now)
		if err != nil {
			return added, fmt.Errorf("insert seen link: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// SeenURLs returns every stored link.
func (d *DB) SeenURLs(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT url FROM seen_links ORDER BY url;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListSeen returns stored links, newest first. limit <= 0 means all.
func (d *DB) ListSeen(ctx context.Context, limit int) ([]SeenLink, error) {
	q := `SELECT url, company, title, added_at FROM seen_links ORDER BY added_at DESC, url`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.Pool.QueryContext(ctx, q+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeenLink
	for rows.Next() {
		var (
			l     SeenLink
			added string
		)
		if err := rows.Scan(&l.URL, &l.Company, &l.Title, &added); err != nil {
			return nil, err
		}
		l.AddedAt, _ = time.Parse(time.RFC3339, added)
		out = append(out, l)
	}
	return out, rows.Err()
}
