//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the documents table is searched directly.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches documents whose title, body or tags contain every term of
// query, case-insensitively for ASCII. Results are ordered by path.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var where []string
	var args []any
	for _, t := range terms {
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		p := likePattern(t)
		args = append(args, p, p, p)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, title, body
		FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	out, err := scanResults(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	for i := range out {
		out[i].Snippet = snippetAround(out[i].Snippet, terms[0])
	}
	return out, nil
}
