// Package theory defines the theory content tree and its invariants.
package theory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var mdExtRe = regexp.MustCompile(`\.md$`)

// ContentItem is a leaf of the tree pointing at one document.
type ContentItem struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Category is a node of the content tree. Order keeps the key order of
// Subcategories as it was received so projections stay deterministic.
type Category struct {
	Subcategories map[string]*Category
	Order         []string
	Files         []ContentItem
}

// NewCategory returns an empty, non-nil category.
func NewCategory() *Category {
	return &Category{
		Subcategories: make(map[string]*Category),
		Files:         []ContentItem{},
	}
}

// Empty reports whether the category has neither subcategories nor files.
func (c *Category) Empty() bool {
	return c == nil || (len(c.Subcategories) == 0 && len(c.Files) == 0)
}

// AddSubcategory attaches child under name, keeping insertion order.
// An existing child with the same name is replaced in place.
func (c *Category) AddSubcategory(name string, child *Category) {
	if c.Subcategories == nil {
		c.Subcategories = make(map[string]*Category)
	}
	if _, ok := c.Subcategories[name]; !ok {
		c.Order = append(c.Order, name)
	}
	c.Subcategories[name] = child
}

// Keys returns subcategory names in display order. Names present in the map
// but missing from Order are appended at the end.
func (c *Category) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Subcategories))
	seen := make(map[string]struct{}, len(c.Subcategories))
	for _, k := range c.Order {
		if _, ok := c.Subcategories[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range c.Subcategories {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Clone returns a deep copy.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	out := NewCategory()
	for _, k := range c.Keys() {
		out.AddSubcategory(k, c.Subcategories[k].Clone())
	}
	out.Files = append(out.Files, c.Files...)
	return out
}

type categoryJSON struct {
	Subcategories orderedCategories `json:"subcategories"`
	Files         []ContentItem     `json:"files"`
}

// MarshalJSON emits subcategories in display order.
func (c *Category) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	files := c.Files
	if files == nil {
		files = []ContentItem{}
	}
	return json.Marshal(categoryJSON{
		Subcategories: orderedCategories{keys: c.Keys(), m: c.Subcategories},
		Files:         files,
	})
}

// UnmarshalJSON decodes a category, recording subcategory key order.
func (c *Category) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("theory: category is null")
	}
	var raw categoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Subcategories = raw.Subcategories.m
	c.Order = raw.Subcategories.keys
	c.Files = raw.Files
	if c.Subcategories == nil {
		c.Subcategories = make(map[string]*Category)
	}
	if c.Files == nil {
		c.Files = []ContentItem{}
	}
	return nil
}

// Structure maps topic ids to their root category.
type Structure struct {
	Topics map[string]*Category
	Order  []string
}

// NewStructure returns an empty structure.
func NewStructure() *Structure {
	return &Structure{Topics: make(map[string]*Category)}
}

// Add registers a topic root, keeping insertion order.
func (s *Structure) Add(topic string, root *Category) {
	if s.Topics == nil {
		s.Topics = make(map[string]*Category)
	}
	if _, ok := s.Topics[topic]; !ok {
		s.Order = append(s.Order, topic)
	}
	s.Topics[topic] = root
}

// Topic returns the root category for id, or nil when the topic is unknown.
func (s *Structure) Topic(id string) *Category {
	if s == nil || s.Topics == nil {
		return nil
	}
	return s.Topics[id]
}

// Keys returns topic ids in display order.
func (s *Structure) Keys() []string {
	if s == nil {
		return nil
	}
	return (&Category{Subcategories: s.Topics, Order: s.Order}).Keys()
}

// Clone returns a deep copy.
func (s *Structure) Clone() *Structure {
	if s == nil {
		return nil
	}
	out := NewStructure()
	for _, k := range s.Keys() {
		out.Add(k, s.Topics[k].Clone())
	}
	return out
}

// MarshalJSON emits the topic mapping in display order.
func (s *Structure) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderedCategories{keys: s.Keys(), m: s.Topics})
}

// UnmarshalJSON decodes a topic mapping, recording key order.
func (s *Structure) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("theory: structure is null")
	}
	var oc orderedCategories
	if err := json.Unmarshal(data, &oc); err != nil {
		return err
	}
	s.Topics = oc.m
	s.Order = oc.keys
	if s.Topics == nil {
		s.Topics = make(map[string]*Category)
	}
	return nil
}

// Rendered is one content body. Content is trusted HTML.
type Rendered struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// StripExt removes a trailing ".md" suffix. Other extensions are kept.
func StripExt(path string) string {
	return mdExtRe.ReplaceAllString(path, "")
}

// NavTarget returns the browser route for an item of topic.
func NavTarget(topic, itemPath string) string {
	return "/theory/" + topic + "/" + strings.TrimPrefix(StripExt(itemPath), "/")
}

// orderedCategories is a JSON object of categories that remembers key order.
type orderedCategories struct {
	keys []string
	m    map[string]*Category
}

func (o orderedCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedCategories) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		o.m = make(map[string]*Category)
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("theory: expected object, got %v", tok)
	}
	o.m = make(map[string]*Category)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("theory: expected string key, got %v", kt)
		}
		var child Category
		if err := dec.Decode(&child); err != nil {
			return fmt.Errorf("theory: category %q: %w", key, err)
		}
		if _, dup := o.m[key]; !dup {
			o.keys = append(o.keys, key)
		}
		o.m[key] = &child
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
