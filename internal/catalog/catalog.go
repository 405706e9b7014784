// Package catalog builds the theory tree from the Markdown vault.
package catalog

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/theoria/internal/storage"
	"github.com/starford/theoria/internal/theory"
)

// Catalog caches the tree built from the vault. It is rebuilt wholesale,
// never patched.
type Catalog struct {
	store  storage.Provider
	ignore []string

	mu        sync.RWMutex
	structure *theory.Structure
	byName    map[string]string
	paths     map[string]struct{}
}

// New creates a catalog over store. Files matching any ignore glob
// (doublestar syntax, vault-relative) are left out of the tree.
func New(store storage.Provider, ignore []string) (*Catalog, error) {
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("catalog: invalid ignore pattern %q", p)
		}
	}
	return &Catalog{
		store:     store,
		ignore:    ignore,
		structure: theory.NewStructure(),
		byName:    map[string]string{},
		paths:     map[string]struct{}{},
	}, nil
}

// Rebuild rescans the vault and swaps in the new tree.
func (c *Catalog) Rebuild() error {
	entries, err := c.store.List("")
	if err != nil {
		return fmt.Errorf("catalog: rebuild: %w", err)
	}
	kept := entries[:0:0]
	for _, e := range entries {
		if !c.Ignored(e.Path) {
			kept = append(kept, e)
		}
	}
	s, byName := Build(kept)

	paths := make(map[string]struct{}, len(kept))
	for _, e := range kept {
		if strings.Contains(e.Path, "/") {
			paths[e.Path] = struct{}{}
		}
	}

	c.mu.Lock()
	c.structure = s
	c.byName = byName
	c.paths = paths
	c.mu.Unlock()
	return nil
}

// Ignored reports whether rel matches one of the ignore globs.
func (c *Catalog) Ignored(rel string) bool {
	for _, p := range c.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Structure returns a copy of the current tree.
func (c *Catalog) Structure() *theory.Structure {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.structure.Clone()
}

// Has reports whether the vault-relative file is part of the tree.
func (c *Catalog) Has(rel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.paths[rel]
	return ok
}

// Len returns the number of documents in the tree.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}

// Find resolves a wikilink target by file name, case-insensitively and with
// or without the .md suffix.
func (c *Catalog) Find(name string) (string, bool) {
	key := normalizeName(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byName[key]
	return p, ok
}

// Build turns vault entries into a topic structure. Every directory holding
// Markdown files becomes a category; files at the vault root have no topic
// and are skipped. The returned index maps normalized file names to paths;
// on name clashes the lexically first path wins.
func Build(entries []storage.Entry) (*theory.Structure, map[string]string) {
	sorted := make([]storage.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	root := theory.NewCategory()
	byName := make(map[string]string, len(sorted))
	for _, e := range sorted {
		dir, file := path.Split(e.Path)
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			continue
		}
		node := root
		for _, part := range strings.Split(dir, "/") {
			child, ok := node.Subcategories[part]
			if !ok {
				child = theory.NewCategory()
				node.AddSubcategory(part, child)
			}
			node = child
		}
		node.Files = append(node.Files, theory.ContentItem{
			Name: strings.TrimSuffix(file, ".md"),
			Path: e.Path,
		})
		if _, ok := byName[normalizeName(file)]; !ok {
			byName[normalizeName(file)] = e.Path
		}
	}

	s := theory.NewStructure()
	for _, k := range root.Keys() {
		s.Add(k, root.Subcategories[k])
	}
	return s, byName
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = path.Base(n)
	return strings.TrimSuffix(n, ".md")
}
