package index

import (
	"database/sql"
	"strings"
	"unicode/utf8"
)

const (
	defaultLimit  = 20
	snippetRadius = 80
)

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// queryTerms splits a user query into words, dropping empty ones.
func queryTerms(q string) []string {
	return strings.Fields(q)
}

// ftsQuery turns free text into an FTS5 expression matching every term as
// a literal, so input such as "k-means" or "p(x)" is not parsed as syntax.
func ftsQuery(q string) string {
	terms := queryTerms(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// likePattern escapes LIKE wildcards in term. Use with ESCAPE '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// snippetAround cuts body around the first case-insensitive match of term,
// marking the match with <b> tags. Without a match it returns the opening
// of body.
func snippetAround(body, term string) string {
	i, end := indexFold(body, term)
	if i < 0 {
		return truncate(body, 2*snippetRadius)
	}

	start := max(0, i-snippetRadius)
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	stop := min(len(body), end+snippetRadius)
	for stop < len(body) && !utf8.RuneStart(body[stop]) {
		stop++
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(body[start:i])
	b.WriteString("<b>")
	b.WriteString(body[i:end])
	b.WriteString("</b>")
	b.WriteString(body[end:stop])
	if stop < len(body) {
		b.WriteString("...")
	}
	return b.String()
}

// indexFold returns the byte span of the first match of term in s under
// Unicode case folding, or -1, -1. Offsets always refer to s; the match may
// differ from term in byte length.
func indexFold(s, term string) (int, int) {
	if term == "" {
		return -1, -1
	}
	for i := 0; i < len(s); {
		if end, ok := hasFoldPrefix(s[i:], term); ok {
			return i, i + end
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// hasFoldPrefix reports whether s starts with term under case folding and
// returns the length in s of the matched prefix.
func hasFoldPrefix(s, term string) (int, bool) {
	j := 0
	for _, tr := range term {
		if j >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[j:])
		if sr != tr && !strings.EqualFold(string(sr), string(tr)) {
			return 0, false
		}
		j += size
	}
	return j, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
