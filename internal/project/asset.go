package project

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mk12/zendown/internal/resource"
	"github.com/mk12/zendown/internal/tree"
	"github.com/mk12/zendown/internal/zfm"
)

// Asset is a file in the assets directory, referenced by images.
type Asset struct {
	*resource.Lifecycle[*Project]

	node *tree.Node[*Asset]
	path string
}

func newAsset(node *tree.Node[*Asset], path string, logger *slog.Logger) *Asset {
	a := &Asset{node: node, path: path}
	a.Lifecycle = resource.New[*Project]("asset", node.Ref().String, path, nil, logger)
	return a
}

// Ref returns the asset's ref relative to the assets directory.
func (a *Asset) Ref() tree.Ref { return a.node.Ref() }

// Path returns the asset's file path.
func (a *Asset) Path() string { return a.path }

// IncludeMacro is the name of the block macro that splices in an include.
const IncludeMacro = "include"

// Include is a ZFM fragment in the includes directory.
type Include struct {
	*resource.Lifecycle[*Project]

	node   *tree.Node[*Include]
	path   string
	logger *slog.Logger

	raw []byte
	doc *zfm.Document
}

func newInclude(node *tree.Node[*Include], path string, logger *slog.Logger) *Include {
	inc := &Include{node: node, path: path}
	inc.logger = logger.With(slog.String("include", path))
	inc.Lifecycle = resource.New[*Project]("include", node.Ref().String, path, includeHooks{inc}, logger)
	return inc
}

// Ref returns the include's ref relative to the includes directory, without
// the file extension.
func (i *Include) Ref() tree.Ref { return i.node.Ref() }

// Path returns the include's file path.
func (i *Include) Path() string { return i.path }

// Doc returns the parsed fragment, loading and parsing it if needed.
func (i *Include) Doc() (*zfm.Document, error) {
	if err := i.EnsureLoaded(); err != nil {
		return nil, err
	}
	if err := i.EnsureParsed(); err != nil {
		return nil, err
	}
	return i.doc, nil
}

type includeHooks struct{ i *Include }

func (h includeHooks) Load() error {
	data, err := os.ReadFile(h.i.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		h.i.logger.Error("file disappeared")
	case err != nil:
		return err
	}
	h.i.raw = data
	return nil
}

func (h includeHooks) Unload() { h.i.raw = nil }

func (h includeHooks) Parse() error {
	h.i.doc = zfm.Parse(h.i.raw)
	return nil
}

func (h includeHooks) Unparse() { h.i.doc = nil }
