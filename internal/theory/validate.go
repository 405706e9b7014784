package theory

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxDepth bounds the nesting accepted from remote sources.
const MaxDepth = 32

// Validate validates a single leaf.
func (i ContentItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Path, validation.Required, validation.By(relativePath)),
	)
}

// Validate checks the whole subtree.
func (c *Category) Validate() error {
	return c.validate("", 0)
}

func (c *Category) validate(at string, depth int) error {
	if c == nil {
		return fmt.Errorf("theory: %s: category is null", label(at))
	}
	if depth > MaxDepth {
		return fmt.Errorf("theory: %s: nesting deeper than %d", label(at), MaxDepth)
	}
	for i, f := range c.Files {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("theory: %s: file %d: %w", label(at), i, err)
		}
	}
	for _, k := range c.Keys() {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("theory: %s: empty subcategory name", label(at))
		}
		if err := c.Subcategories[k].validate(join(at, k), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every topic tree.
func (s *Structure) Validate() error {
	if s == nil {
		return fmt.Errorf("theory: structure is null")
	}
	for _, k := range s.Keys() {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("theory: empty topic id")
		}
		if err := s.Topics[k].validate(k, 0); err != nil {
			return err
		}
	}
	return nil
}

// Validate requires a title; an empty body is allowed.
func (r Rendered) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
	)
}

func relativePath(v any) error {
	p, _ := v.(string)
	if strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return fmt.Errorf("must be a relative path without traversal")
	}
	return nil
}

func join(at, k string) string {
	if at == "" {
		return k
	}
	return at + "/" + k
}

func label(at string) string {
	if at == "" {
		return "root"
	}
	return at
}
