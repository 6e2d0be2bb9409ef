package project

import (
	"github.com/mk12/zendown/internal/section"
)

// Interlink is a resolved link to an article, optionally to one of its
// sections.
type Interlink struct {
	Article *Article
	Anchor  section.Anchor
	// Self is set when the link named no article and so points into the
	// article it appears in.
	Self bool
}

// String returns the canonical form: the target ref (omitted for self links)
// followed by #anchor when there is one.
func (l Interlink) String() string {
	var s string
	if !l.Self {
		s = l.Article.Ref().String()
	}
	if l.Anchor != "" {
		s += "#" + string(l.Anchor)
	}
	return s
}

// Section returns the linked section, or nil when the link has no anchor.
func (l Interlink) Section() (*section.Section, error) {
	if l.Anchor == "" {
		return nil, nil
	}
	secs, err := l.Article.Sections()
	if err != nil {
		return nil, err
	}
	s, _ := secs.ByLabel(l.Anchor)
	return s, nil
}
