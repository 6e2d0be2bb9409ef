package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mk12/zendown/internal/index"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/zfm"
)

// Links records the cross-reference graph in the project's SQLite index and
// prints, for every article, what it links to and what links to it.
type Links struct{}

// NewLinks returns the links target.
func NewLinks() *Links { return &Links{} }

func (*Links) Name() string        { return "links" }
func (*Links) Description() string { return "cross-reference report (updates the link index)" }

func (*Links) ResolveLink(_ *project.Article, link project.Interlink) (string, error) {
	return linkTarget(link), nil
}

func (*Links) ResolveAsset(_ *project.Article, asset *project.Asset) (string, error) {
	return asset.Ref().String(), nil
}

// linkTarget is the index form of an interlink: the full ref, then #anchor.
func linkTarget(link project.Interlink) string {
	s := link.Article.Ref().String()
	if link.Anchor != "" {
		s += "#" + string(link.Anchor)
	}
	return s
}

// OpenIndex opens the link index configured for p.
func OpenIndex(p *project.Project) (*index.DB, error) {
	path := p.Config().Index.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root(), path)
	}
	return index.Open(path)
}

// Records resolves every article of p and returns its index records.
// Articles that fail to load are logged and left out.
func Records(p *project.Project) ([]index.Record, error) {
	var records []index.Record
	for _, a := range p.Articles() {
		if err := a.Resolved(p); err != nil {
			p.Logger().Error("index: resolve failed", slog.String("article", a.Path()), slog.String("error", err.Error()))
			continue
		}
		r, err := record(p, a)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func record(p *project.Project, a *project.Article) (index.Record, error) {
	var r index.Record
	cfg, err := a.Config()
	if err != nil {
		return r, err
	}
	cs, err := a.Checksum()
	if err != nil {
		return r, err
	}
	doc, err := a.Doc()
	if err != nil {
		return r, err
	}
	r.Article = index.ArticleRow{
		Ref:      a.Ref().String(),
		Path:     a.Path(),
		Title:    cfg.Title,
		Checksum: cs,
		Tags:     cfg.Tags,
	}
	r.Body = zfm.CollectTextAll(doc.Blocks(), doc.Source)

	links, _ := a.Links(p)
	for _, l := range links {
		r.Links = append(r.Links, index.Link{Target: linkTarget(l), Kind: index.KindLink})
	}
	assets, _ := a.Assets(p)
	for _, asset := range assets {
		r.Links = append(r.Links, index.Link{Target: asset.Ref().String(), Kind: index.KindAsset})
	}
	includes, _ := a.Includes(p)
	for _, inc := range includes {
		r.Links = append(r.Links, index.Link{Target: inc.Ref().String(), Kind: index.KindInclude})
	}
	return r, nil
}

// SyncIndex brings db up to date with p.
func SyncIndex(p *project.Project, db index.LinkIndex) (index.SyncStats, error) {
	records, err := Records(p)
	if err != nil {
		return index.SyncStats{}, err
	}
	return index.Sync(db, records, p.Logger())
}

func (l *Links) Build(ctx context.Context, env *Env) (Result, error) {
	var res Result
	p := env.Project

	db := env.Index
	if db == nil {
		var err error
		if db, err = OpenIndex(p); err != nil {
			return res, err
		}
		defer db.Close()
	}

	stats, err := SyncIndex(p, db)
	if err != nil {
		return res, err
	}
	res.Written = stats.Indexed
	res.Removed = stats.Removed

	w := env.Stdout
	for _, a := range p.Articles() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ref := a.Ref().String()
		out, err := db.Outgoing(ref)
		if err != nil {
			return res, err
		}
		back, err := db.Backlinks(ref)
		if err != nil {
			return res, err
		}
		fmt.Fprintf(w, "%s (%s)\n", ref, a.Title())
		for _, link := range out {
			fmt.Fprintf(w, "  -> %-7s %s\n", link.Kind, link.Target)
		}
		for _, link := range back {
			fmt.Fprintf(w, "  <- %-7s %s\n", link.Kind, backlinkSource(link, ref))
		}
		res.Articles++
	}
	return res, nil
}

// backlinkSource formats the source of a backlink to ref, keeping the anchor
// it points at.
func backlinkSource(link index.Link, ref string) string {
	if anchor, ok := strings.CutPrefix(link.Target, ref+"#"); ok {
		return link.Source + " (#" + anchor + ")"
	}
	return link.Source
}
