package project

// Builder turns resolved references into URLs for one output target. from is
// the article being rendered.
type Builder interface {
	Name() string
	ResolveLink(from *Article, link Interlink) (string, error)
	ResolveAsset(from *Article, asset *Asset) (string, error)
}
