package index

import (
	"log/slog"
	"sort"

	"github.com/mk12/zendown/internal/checksum"
)

// Record is everything the index stores about one article.
type Record struct {
	Article ArticleRow
	Body    string
	Links   []Link
}

// Fingerprint digests the article checksum together with its links, so a
// record is rewritten when resolution changes even if the file did not.
func (r Record) Fingerprint() string {
	parts := make([]string, 0, len(r.Links)+2)
	parts = append(parts, r.Article.Checksum, r.Article.Title)
	for _, l := range r.Links {
		parts = append(parts, string(l.Kind)+" "+l.Target)
	}
	sort.Strings(parts[2:])
	return checksum.Strings(parts...)
}

// SyncStats counts what Sync changed.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Removed   int
}

// Sync brings the index up to date with records:
//   - new/changed records are upserted
//   - articles no longer present are deleted from the index
//
// The stored checksum is the record's Fingerprint.
func Sync(db LinkIndex, records []Record, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		ref := r.Article.Ref
		seen[ref] = struct{}{}

		fp := r.Fingerprint()
		if checksums[ref] == fp {
			stats.Unchanged++
			continue
		}
		row := r.Article
		row.Checksum = fp
		if err := db.UpsertArticle(row, r.Body, r.Links); err != nil {
			logger.Warn("sync: index failed", slog.String("ref", ref), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("ref", ref))
	}

	for ref := range checksums {
		if _, ok := seen[ref]; ok {
			continue
		}
		if err := db.DeleteArticle(ref); err != nil {
			logger.Warn("sync: delete failed", slog.String("ref", ref), slog.String("error", err.Error()))
		} else {
			stats.Removed++
			logger.Debug("sync: removed stale", slog.String("ref", ref))
		}
	}

	return stats, nil
}
