// Package testutil builds temporary vaults and indexes for tests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/theoria/internal/catalog"
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/markdown"
	"github.com/starford/theoria/internal/storage"
)

// SampleVault is a small theory vault shaped like the demo tree.
var SampleVault = map[string]string{
	"intro/01-what-is-machine-learning.md":  "---\ntags: [basics]\n---\n# What is Machine Learning?\n\nLearning from data. See [[01-linear-regression|regression]].\n",
	"supervised/01-linear-regression.md":    "# Linear Regression\n\nFit $y = w_1 x + b$ by least squares.\n",
	"supervised/trees/01-decision-trees.md": "# Decision Trees\n\nSplit on features.\n",
	"unsupervised/01-clustering.md":         "# Clustering Algorithms\n\nGroup similar points with k-means.\n",
	"unsupervised/drafts/wip.md":            "# Work in progress\n",
	"README.md":                             "# Vault\n",
}

// SampleIgnore hides the draft in SampleVault.
var SampleIgnore = []string{"**/drafts/**"}

// Vault writes files into a temporary directory and opens it.
func Vault(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for rel, body := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// DB opens an index in a temporary directory, closed on cleanup.
func DB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "theoria-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Backend is a fully wired, synced content backend.
type Backend struct {
	Dir      string
	Store    *storage.FS
	Catalog  *catalog.Catalog
	Renderer *markdown.Renderer
	DB       *index.DB
}

// NewBackend builds a backend over files with the given ignore globs. The
// catalog is built and the index synced before it returns.
func NewBackend(t *testing.T, files map[string]string, ignore []string) *Backend {
	t.Helper()
	dir, store := Vault(t, files)
	cat, err := catalog.New(store, ignore)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Rebuild(); err != nil {
		t.Fatal(err)
	}
	db := DB(t)
	if err := index.Sync(db, store, cat.Ignored, Logger()); err != nil {
		t.Fatal(err)
	}
	return &Backend{
		Dir:      dir,
		Store:    store,
		Catalog:  cat,
		Renderer: markdown.NewRenderer(markdown.WithLinks(cat)),
		DB:       db,
	}
}
