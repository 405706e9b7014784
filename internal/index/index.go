package index

import "time"

// Index is what the service and the watcher need from the database.
type Index interface {
	UpsertDocument(d DocumentRow, body string) error
	DeleteDocument(path string) error
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	RecordView(v View) error
	ViewStats(now time.Time, totalContent int) (*Stats, error)
	Close() error
}

var _ Index = (*DB)(nil)
