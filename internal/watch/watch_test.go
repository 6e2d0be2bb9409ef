package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/resource"
	"github.com/mk12/zendown/internal/testutil"
	"github.com/mk12/zendown/internal/tree"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	root := testutil.WriteProject(t, files)
	p, err := project.Open(root, discard())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func mustArticle(t *testing.T, p *project.Project, ref string) *project.Article {
	t.Helper()
	r, err := tree.ParseRef(ref)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := p.Article(r)
	if !ok {
		t.Fatalf("article %s not found", ref)
	}
	return a
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestAdd_Classifies(t *testing.T) {
	root := t.TempDir()
	w := New(root, discard())
	at := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
		c    Change
	}{
		{"modified article", fsnotify.Event{Name: at("content/a.md"), Op: fsnotify.Write}, true, Change{Modified: []string{at("content/a.md")}}},
		{"new asset", fsnotify.Event{Name: at("assets/x.png"), Op: fsnotify.Create}, true, Change{Rescan: true}},
		{"removed include", fsnotify.Event{Name: at("includes/s.md"), Op: fsnotify.Remove}, true, Change{Rescan: true}},
		{"config", fsnotify.Event{Name: at("zendown.yml"), Op: fsnotify.Write}, true, Change{Config: true}},
		{"ignore file", fsnotify.Event{Name: at(".zendownignore"), Op: fsnotify.Create}, true, Change{Config: true}},
		{"output", fsnotify.Event{Name: at("out/html/a.html"), Op: fsnotify.Write}, false, Change{}},
		{"hidden", fsnotify.Event{Name: at("content/.a.md.swp"), Op: fsnotify.Write}, false, Change{}},
		{"chmod", fsnotify.Event{Name: at("content/a.md"), Op: fsnotify.Chmod}, false, Change{}},
		{"similar prefix", fsnotify.Event{Name: at("contents/a.md"), Op: fsnotify.Write}, false, Change{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b batch
			if got := w.add(&b, tt.ev); got != tt.want {
				t.Fatalf("add = %v, want %v", got, tt.want)
			}
			c := b.change()
			if c.Rescan != tt.c.Rescan || c.Config != tt.c.Config || len(c.Modified) != len(tt.c.Modified) {
				t.Fatalf("change = %+v, want %+v", c, tt.c)
			}
			for i := range c.Modified {
				if c.Modified[i] != tt.c.Modified[i] {
					t.Errorf("modified[%d] = %q, want %q", i, c.Modified[i], tt.c.Modified[i])
				}
			}
		})
	}
}

func TestChangeTrigger(t *testing.T) {
	if got := (Change{Config: true, Rescan: true}).Trigger(); got != "config" {
		t.Errorf("trigger = %q", got)
	}
	if got := (Change{Rescan: true}).Trigger(); got != "scan" {
		t.Errorf("trigger = %q", got)
	}
	if got := (Change{Modified: []string{"x"}}).Trigger(); got != "modify" {
		t.Errorf("trigger = %q", got)
	}
	if !(Change{}).Empty() {
		t.Error("zero change should be empty")
	}
}

func TestApply_Modified(t *testing.T) {
	p := openProject(t, map[string]string{
		"content/a.md": "title: Old\n---\n[b](b)\n",
		"content/b.md": "title: B\n---\n",
	})
	a := mustArticle(t, p, "/a")
	b := mustArticle(t, p, "/b")
	if a.Title() != "Old" {
		t.Fatalf("title = %q", a.Title())
	}
	if err := b.Resolved(p); err != nil {
		t.Fatal(err)
	}
	reads := a.Reads()

	if err := os.WriteFile(a.Path(), []byte("title: New\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Apply(p, Change{Modified: []string{a.Path(), "/not/in/project.md"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a.Title() != "New" {
		t.Errorf("title = %q, want New", a.Title())
	}
	if a.Reads() != reads+1 {
		t.Errorf("reads = %d, want %d", a.Reads(), reads+1)
	}
	if b.Stage() == resource.Resolved {
		t.Errorf("b should be unresolved, stage = %v", b.Stage())
	}
}

func TestApply_Rescan(t *testing.T) {
	p := openProject(t, map[string]string{"content/a.md": "title: A\n---\n"})
	testutil.WriteFile(t, p.Root(), "content/b.md", "title: B\n---\n")
	if err := Apply(p, Change{Rescan: true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	mustArticle(t, p, "/b")
}

func TestApply_Config(t *testing.T) {
	p := openProject(t, map[string]string{"content/a.md": "title: A\n---\n"})
	testutil.WriteFile(t, p.Root(), "zendown.yml", "project_name: Other\n")
	if err := Apply(p, Change{Config: true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p.Name() != "Other" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestWatcher_Run(t *testing.T) {
	p := openProject(t, map[string]string{"content/a.md": "title: A\n---\n"})
	w := New(p.Root(), discard())
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		changes []Change
	)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, c Change) error {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, c)
			return nil
		})
	}()
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, p.Root(), "content/sub/new.md", "title: New\n---\n")
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range changes {
			if c.Rescan {
				return true
			}
		}
		return false
	}, "new file did not trigger a rescan")

	// Let the new directory's watch settle before writing into it.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	changes = nil
	mu.Unlock()

	path := filepath.Join(p.Root(), "content", "sub", "new.md")
	if err := os.WriteFile(path, []byte("title: Changed\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range changes {
			for _, m := range c.Modified {
				if m == path {
					return true
				}
			}
		}
		return false
	}, "write did not report the modified file")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop")
	}
}
