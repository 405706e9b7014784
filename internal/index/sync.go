package index

import (
	"log/slog"

	"github.com/starford/theoria/internal/checksum"
	"github.com/starford/theoria/internal/markdown"
	"github.com/starford/theoria/internal/storage"
)

// SkipFunc reports whether a vault path is excluded from the index.
type SkipFunc func(path string) bool

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk (or now skipped) are deleted
func Sync(db *DB, store storage.Provider, skip SkipFunc, logger *slog.Logger) error {
	entries, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if skip != nil && skip(e.Path) {
			continue
		}
		disk[e.Path] = struct{}{}

		if checksums[e.Path] == e.Checksum {
			continue
		}

		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, e.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", e.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", e.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	return nil
}

// indexFile parses data and upserts it.
func indexFile(db *DB, path string, data []byte) error {
	doc := markdown.Parse(data)
	return db.UpsertDocument(DocumentRow{
		Path:     path,
		Title:    doc.Title,
		Checksum: checksum.Sum(data),
		Tags:     doc.Tags,
	}, doc.Body)
}
