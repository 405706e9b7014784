package markdown

import (
	"strings"
	"testing"
)

type linkMap map[string]string

func (m linkMap) Find(name string) (string, bool) {
	p, ok := m[strings.ToLower(name)]
	return p, ok
}

func TestRender_TitleAndHTML(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render([]byte("# Clustering\n\nGroups **similar** points.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Title != "Clustering" {
		t.Errorf("title = %q", out.Title)
	}
	if strings.Contains(out.Content, "<h1") {
		t.Errorf("title heading rendered twice: %s", out.Content)
	}
	if !strings.Contains(out.Content, "<strong>similar</strong>") {
		t.Errorf("missing emphasis: %s", out.Content)
	}
	if !strings.Contains(out.Content, "<table>") {
		t.Errorf("missing table: %s", out.Content)
	}
}

func TestRender_MathProtected(t *testing.T) {
	r := NewRenderer()
	src := "# Loss\n\nThe loss is $a_1 * b_2$ here.\n\n$$\n\\sum_i x_i < y\n$$\n"
	out, err := r.Render([]byte(src))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out.Content, "$a_1 * b_2$") {
		t.Errorf("inline math altered: %s", out.Content)
	}
	if !strings.Contains(out.Content, "$$\n\\sum_i x_i &lt; y\n$$") {
		t.Errorf("block math altered: %s", out.Content)
	}
	if strings.Contains(out.Content, "<p>$$") {
		t.Errorf("block math still wrapped in paragraph: %s", out.Content)
	}
	if strings.Contains(out.Content, "<em>") {
		t.Errorf("math underscores became emphasis: %s", out.Content)
	}
}

func TestRender_EscapedDollar(t *testing.T) {
	out, err := NewRenderer().Render([]byte("costs \\$5 and \\$10\n"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out.Content, "costs $5 and $10") {
		t.Errorf("escaped dollars: %s", out.Content)
	}
}

func TestRender_Wikilinks(t *testing.T) {
	r := NewRenderer(WithLinks(linkMap{"01-clustering": "unsupervised/01-clustering.md"}))
	out, err := r.Render([]byte("See [[01-Clustering|clustering]] and [[missing]].\n"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `<a href="/theory/unsupervised/unsupervised/01-clustering" class="wikilink">clustering</a>`
	if !strings.Contains(out.Content, want) {
		t.Errorf("resolved link missing, got %s", out.Content)
	}
	if !strings.Contains(out.Content, `<span class="missing-link">missing</span>`) {
		t.Errorf("unresolved link not marked, got %s", out.Content)
	}
}

func TestRender_SanitizeOptional(t *testing.T) {
	src := []byte("# T\n\n<script>alert(1)</script>\n\nok\n")

	trusted, err := NewRenderer().Render(src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(trusted.Content, "<script>") {
		t.Errorf("trusted render should keep raw HTML: %s", trusted.Content)
	}

	clean, err := NewRenderer(WithSanitize(true)).Render(src)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(clean.Content, "<script>") {
		t.Errorf("sanitized render kept script: %s", clean.Content)
	}
}

func TestLinkTarget(t *testing.T) {
	if got := LinkTarget("intro/01-what-is-machine-learning.md"); got != "/theory/intro/intro/01-what-is-machine-learning" {
		t.Errorf("LinkTarget = %q", got)
	}
}
