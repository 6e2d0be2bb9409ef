package index

// LinkIndex defines the cross-reference operations consumers depend on.
type LinkIndex interface {
	UpsertArticle(a ArticleRow, body string, links []Link) error
	DeleteArticle(ref string) error
	GetArticle(ref string) (*ArticleRow, error)
	GetChecksum(ref string) (string, error)
	AllChecksums() (map[string]string, error)
	Outgoing(source string) ([]Link, error)
	Backlinks(target string) ([]Link, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies LinkIndex at compile time.
var _ LinkIndex = (*DB)(nil)
