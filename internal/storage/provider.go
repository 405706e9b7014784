// Package storage gives read access to the Markdown content vault.
package storage

import "time"

// Entry describes one Markdown file in the vault.
type Entry struct {
	Path      string    `json:"path"` // slash-separated, relative to the vault root
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the read-only view of the vault.
type Provider interface {
	// List returns every .md file under dir (relative to the vault root).
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path (relative to the vault root).
	Read(path string) ([]byte, error)
	// Root returns the absolute vault directory.
	Root() string
}
