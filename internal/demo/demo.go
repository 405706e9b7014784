// Package demo embeds the fixed fallback tree and content table used when the
// theory backend is unreachable.
package demo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/theoria/internal/theory"
)

var (
	//go:embed data/structure.json
	structureJSON []byte

	//go:embed data/content.yaml
	contentYAML []byte
)

var load = sync.OnceValues(func() (*theory.Structure, error) {
	var s theory.Structure
	if err := json.Unmarshal(structureJSON, &s); err != nil {
		return nil, fmt.Errorf("demo: decode structure: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("demo: invalid structure: %w", err)
	}
	return &s, nil
})

var loadContent = sync.OnceValues(func() (map[string]theory.Rendered, error) {
	table := make(map[string]theory.Rendered)
	if err := yaml.Unmarshal(contentYAML, &table); err != nil {
		return nil, fmt.Errorf("demo: decode content: %w", err)
	}
	return table, nil
})

// Structure returns a fresh copy of the fallback tree.
func Structure() *theory.Structure {
	s, err := load()
	if err != nil {
		panic(err)
	}
	return s.Clone()
}

// Lookup returns the fallback content for path.
func Lookup(path string) (theory.Rendered, bool) {
	table, err := loadContent()
	if err != nil {
		panic(err)
	}
	r, ok := table[path]
	return r, ok
}
