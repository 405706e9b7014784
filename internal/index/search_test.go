package index

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"k-means", `"k-means"`},
		{"  gradient   descent ", `"gradient" "descent"`},
		{`say "hi"`, `"say" """hi"""`},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := ftsQuery(tt.in); got != tt.want {
			t.Errorf("ftsQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLikePattern(t *testing.T) {
	if got := likePattern(`50%_a\b`); got != `%50\%\_a\\b%` {
		t.Errorf("likePattern = %q", got)
	}
}

func TestSnippetAround(t *testing.T) {
	body := strings.Repeat("a ", 100) + "Hyperplane separates" + strings.Repeat(" b", 100)
	got := snippetAround(body, "hyperplane")
	if !strings.Contains(got, "<b>Hyperplane</b>") {
		t.Errorf("match not marked: %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipses on both sides: %q", got)
	}

	if got := snippetAround("short body", "missing"); got != "short body" {
		t.Errorf("no match = %q", got)
	}
	if got := snippetAround("Clustering", "clustering"); got != "<b>Clustering</b>" {
		t.Errorf("whole body = %q", got)
	}
}

func TestSnippetAround_KeepsRunes(t *testing.T) {
	body := strings.Repeat("é", 200) + "x"
	got := snippetAround(body, "x")
	if !strings.HasSuffix(got, "<b>x</b>") {
		t.Fatalf("snippet = %q", got)
	}
	trimmed := strings.TrimPrefix(got, "...")
	for _, r := range strings.TrimSuffix(trimmed, "<b>x</b>") {
		if r != 'é' {
			t.Fatalf("broken rune in %q", got)
		}
	}

	// Ⱥ lowercases to a longer encoding and İ to a shorter one; offsets
	// must still point into the original body.
	for _, prefix := range []string{"Ⱥ", "İ"} {
		body := strings.Repeat(prefix, 100) + " kmeans"
		got := snippetAround(body, "kmeans")
		if !utf8.ValidString(got) {
			t.Errorf("%s: invalid UTF-8 in %q", prefix, got)
		}
		if !strings.HasSuffix(got, " <b>kmeans</b>") {
			t.Errorf("%s: snippet = %q", prefix, got)
		}
	}

	if got := snippetAround("xȺBy", "ⱥb"); got != "x<b>ȺB</b>y" {
		t.Errorf("folded match = %q", got)
	}
}

func TestIndexFold(t *testing.T) {
	tests := []struct {
		s, term    string
		start, end int
	}{
		{"Linear Regression", "regression", 7, 17},
		{"ȺȺ kmeans", "KMEANS", 5, 11},
		{"no match", "zzz", -1, -1},
		{"abc", "", -1, -1},
		{"ab", "abc", -1, -1},
	}
	for _, tt := range tests {
		start, end := indexFold(tt.s, tt.term)
		if start != tt.start || end != tt.end {
			t.Errorf("indexFold(%q, %q) = %d, %d, want %d, %d", tt.s, tt.term, start, end, tt.start, tt.end)
		}
	}
}
