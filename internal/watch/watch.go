// Package watch rebuilds a project when its files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mk12/zendown/internal/project"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 200 * time.Millisecond

// Change is one debounced batch of file events.
type Change struct {
	// Modified lists files whose contents changed.
	Modified []string
	// Rescan is set when files were created, removed or renamed.
	Rescan bool
	// Config is set when zendown.yml or .zendownignore changed.
	Config bool
}

// Trigger names the strongest kind of change in the batch.
func (c Change) Trigger() string {
	switch {
	case c.Config:
		return "config"
	case c.Rescan:
		return "scan"
	default:
		return "modify"
	}
}

// Empty reports whether the batch holds nothing to act on.
func (c Change) Empty() bool {
	return !c.Config && !c.Rescan && len(c.Modified) == 0
}

// Apply brings p up to date with c. Modified resources are reloaded and
// every article is unresolved, since links into a changed file may resolve
// differently now.
func Apply(p *project.Project, c Change) error {
	switch {
	case c.Config:
		return p.Reload()
	case c.Rescan:
		return p.ScanArticles()
	}
	for _, path := range c.Modified {
		r, ok := p.FindByPath(path)
		if !ok {
			continue
		}
		if err := r.Load(); err != nil {
			return err
		}
	}
	p.Unresolve()
	return nil
}

// HandlerFunc is called with each batch.
type HandlerFunc func(ctx context.Context, c Change) error

// Watcher delivers debounced changes under a project root.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
}

// New returns a watcher for the project at root.
func New(root string, logger *slog.Logger) *Watcher {
	return &Watcher{root: root, debounce: DefaultDebounce, logger: logger}
}

// Dirs returns the directories watched recursively.
func (w *Watcher) Dirs() []string {
	return []string{
		filepath.Join(w.root, project.ContentDir),
		filepath.Join(w.root, project.AssetsDir),
		filepath.Join(w.root, project.IncludesDir),
	}
}

// Run processes file events until ctx is cancelled, calling fn after each
// quiet period. Handler errors are logged and watching continues.
//
// New directories created at runtime are added to the watch list.
func (w *Watcher) Run(ctx context.Context, fn HandlerFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// The root itself is watched non-recursively for the config files.
	if err := fw.Add(w.root); err != nil {
		return err
	}
	for _, dir := range w.Dirs() {
		if err := addDirsRecursive(fw, dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	var (
		pending  batch
		timer    *time.Timer
		debounce <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			debounce = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-debounce:
			c := pending.change()
			pending = batch{}
			if c.Empty() {
				continue
			}
			w.logger.Info("watcher: rebuilding", slog.String("trigger", c.Trigger()), slog.Int("files", len(c.Modified)))
			if err := fn(ctx, c); err != nil {
				w.logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}
			if w.add(&pending, ev) {
				schedule()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// add records ev in b, reporting whether it was relevant.
func (w *Watcher) add(b *batch, ev fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(filepath.Base(rel), ".") && rel != project.IgnoreFile {
		return false
	}
	switch {
	case rel == project.ConfigFile || rel == project.IgnoreFile:
		if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
			return false
		}
		b.config = true
	case inDir(rel, project.ContentDir), inDir(rel, project.AssetsDir), inDir(rel, project.IncludesDir):
		switch {
		case ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0:
			b.rescan = true
		case ev.Op&fsnotify.Write != 0:
			if b.modified == nil {
				b.modified = make(map[string]struct{})
			}
			b.modified[ev.Name] = struct{}{}
		default:
			return false
		}
	default:
		return false
	}
	w.logger.Debug("watcher: event", slog.String("path", rel), slog.String("op", ev.Op.String()))
	return true
}

func inDir(rel, dir string) bool {
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

type batch struct {
	modified map[string]struct{}
	rescan   bool
	config   bool
}

func (b batch) change() Change {
	c := Change{Rescan: b.rescan, Config: b.config}
	for p := range b.modified {
		c.Modified = append(c.Modified, p)
	}
	sort.Strings(c.Modified)
	return c
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
