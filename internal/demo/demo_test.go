package demo

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/theoria/internal/theory"
)

func TestStructure_Topics(t *testing.T) {
	s := Structure()
	want := []string{"intro", "supervised", "unsupervised", "deep-learning"}
	if diff := cmp.Diff(want, s.Keys()); diff != "" {
		t.Errorf("topics (-want +got):\n%s", diff)
	}
}

func TestStructure_FreshCopy(t *testing.T) {
	a := Structure()
	a.Topic("intro").Files = nil
	b := Structure()
	if len(b.Topic("intro").Files) != 2 {
		t.Errorf("mutation leaked between calls: %+v", b.Topic("intro").Files)
	}
}

func TestLookup(t *testing.T) {
	r, ok := Lookup("supervised/01-linear-regression")
	if !ok {
		t.Fatal("linear regression missing from demo table")
	}
	if r.Title != "Linear Regression" {
		t.Errorf("title = %q", r.Title)
	}
	if _, ok := Lookup("nonexistent/00-missing"); ok {
		t.Error("unexpected hit for missing path")
	}
}

func TestEveryLeafHasContent(t *testing.T) {
	s := Structure()
	for _, topic := range s.Keys() {
		for _, f := range s.Topic(topic).Files {
			if _, ok := Lookup(theory.StripExt(f.Path)); !ok {
				t.Errorf("leaf %q has no demo content", f.Path)
			}
		}
	}
	table, err := loadContent()
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != 5 {
		t.Errorf("content entries = %d, want 5", len(table))
	}
}
