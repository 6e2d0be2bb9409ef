package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// LinkKind classifies an edge of the cross-reference graph.
type LinkKind string

const (
	KindLink    LinkKind = "link"
	KindAsset   LinkKind = "asset"
	KindInclude LinkKind = "include"
)

// ArticleRow represents a row in the articles table.
type ArticleRow struct {
	Ref       string
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// Link is one edge. Target is a ref string (with "#anchor" for interlinks
// that name one).
type Link struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"kind"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Ref     string `json:"ref"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertArticle inserts or replaces an article, its FTS entry, and its
// outgoing links within a transaction.
func (db *DB) UpsertArticle(a ArticleRow, body string, links []Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if a.Tags == nil {
		a.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(a.Tags)

	_, err = tx.Exec(`
		INSERT INTO articles (ref, path, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, a.Ref, a.Path, a.Title, a.Checksum, string(tagsJSON), body, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert article: %w", err)
	}

	if err := ftsUpsert(tx, a.Ref, a.Title, body, a.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, a.Ref); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, kind) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			kind := l.Kind
			if kind == "" {
				kind = KindLink
			}
			if _, err := stmt.Exec(a.Ref, l.Target, string(kind)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteArticle removes an article, its FTS entry, and its outgoing links.
func (db *DB) DeleteArticle(ref string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, ref); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, ref); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM articles WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("index: delete article: %w", err)
	}

	return tx.Commit()
}

// GetArticle returns the stored row for ref, or nil if it is not indexed.
func (db *DB) GetArticle(ref string) (*ArticleRow, error) {
	var (
		a    ArticleRow
		tags string
	)
	err := db.conn.QueryRow(`
		SELECT ref, path, title, checksum, tags, updated_at
		FROM articles WHERE ref = ?
	`, ref).Scan(&a.Ref, &a.Path, &a.Title, &a.Checksum, &tags, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get article: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags: %w", err)
	}
	return &a, nil
}

// GetChecksum returns the stored checksum for an article, or empty string if not found.
func (db *DB) GetChecksum(ref string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM articles WHERE ref = ?`, ref).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed article by ref.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT ref, checksum FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var ref, cs string
		if err := rows.Scan(&ref, &cs); err != nil {
			return nil, err
		}
		out[ref] = cs
	}
	return out, rows.Err()
}

// Outgoing returns the links recorded for source, ordered by kind then target.
func (db *DB) Outgoing(source string) ([]Link, error) {
	return db.queryLinks(`
		SELECT source, target, kind FROM links
		WHERE source = ?
		ORDER BY kind, target
	`, source)
}

// Backlinks returns the links pointing at target. Interlinks naming an
// anchor of target count too.
func (db *DB) Backlinks(target string) ([]Link, error) {
	return db.queryLinks(`
		SELECT source, target, kind FROM links
		WHERE target = ? OR target LIKE ? ESCAPE '\'
		ORDER BY source, target
	`, target, escapeLike(target)+"#%")
}

func (db *DB) queryLinks(query string, args ...any) ([]Link, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var (
			l    Link
			kind string
		)
		if err := rows.Scan(&l.Source, &l.Target, &kind); err != nil {
			return nil, err
		}
		l.Kind = LinkKind(kind)
		out = append(out, l)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
