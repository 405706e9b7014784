package browser

import (
	"iter"

	"github.com/starford/theoria/internal/theory"
)

// EntryKind separates section labels from navigable links.
type EntryKind int

const (
	KindHeader EntryKind = iota
	KindLink
)

func (k EntryKind) String() string {
	if k == KindHeader {
		return "header"
	}
	return "link"
}

// NavEntry is one line of the navigation tree. Target and Path are empty
// for headers.
type NavEntry struct {
	Kind   EntryKind
	Label  string
	Target string
	Path   string
	Depth  int
	Active bool
}

// RenderNav projects cat into a depth-first sequence: each subcategory
// header followed by its own projection one level deeper, then the leaf
// links of this level. A link is active when its extension-stripped path
// equals currentPath exactly. The sequence holds no state and can be
// iterated any number of times.
func RenderNav(topic string, cat *theory.Category, currentPath string, depth int) iter.Seq[NavEntry] {
	return func(yield func(NavEntry) bool) {
		walkNav(topic, cat, currentPath, depth, yield)
	}
}

func walkNav(topic string, cat *theory.Category, currentPath string, depth int, yield func(NavEntry) bool) bool {
	if cat == nil {
		return true
	}
	for _, name := range cat.Keys() {
		if !yield(NavEntry{Kind: KindHeader, Label: name, Depth: depth}) {
			return false
		}
		if !walkNav(topic, cat.Subcategories[name], currentPath, depth+1, yield) {
			return false
		}
	}
	for _, f := range cat.Files {
		p := theory.StripExt(f.Path)
		e := NavEntry{
			Kind:   KindLink,
			Label:  f.Name,
			Target: theory.NavTarget(topic, f.Path),
			Path:   p,
			Depth:  depth,
			Active: p == currentPath,
		}
		if !yield(e) {
			return false
		}
	}
	return true
}
