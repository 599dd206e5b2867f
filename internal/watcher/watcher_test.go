package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func (c *collector) has(suffix string) bool {
	for _, p := range c.snapshot() {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}
	w := New(Config{Extensions: []string{".json"}, Recursive: true}, c.handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_DebouncedEnrollmentFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "class-7b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	c := &collector{}
	w := New(Config{Directories: []string{dir}, Extensions: []string{".json"}, Recursive: true, Debounce: 100 * time.Millisecond}, c.handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(sub, "s1.json")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"source_id":"S1"}`), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(sub, "photo.jpg"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.has("s1.json") })
	time.Sleep(200 * time.Millisecond)

	got := c.snapshot()
	if len(got) != 1 || !strings.HasSuffix(got[0], "s1.json") {
		t.Errorf("expected one debounced callback for s1.json, got %v", got)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/inbox/s1.json", []string{".json"}, true},
		{"/inbox/S1.JSON", []string{"json"}, true},
		{"/inbox/s1.jpg", []string{".json"}, false},
		{"/inbox/s1", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		rel      string
		patterns []string
		want     bool
	}{
		{"s1.json", []string{"**/*.json"}, true},
		{"class-7b/term1/s1.json", []string{"**/*.json"}, true},
		{"class-7b/s1.json", []string{"*.json"}, false},
		{"class-7b/s1.json", []string{"*.yaml", "class-*/*.json"}, true},
		{"s1.json", []string{"[bad"}, false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.rel, tt.patterns); got != tt.want {
			t.Errorf("matchPattern(%q, %v) = %v, want %v", tt.rel, tt.patterns, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/srv/inbox", "/srv/inbox", true},
		{"/srv/inbox", "/srv/inbox/s1.json", true},
		{"/srv/inbox", "/srv/other", false},
		{"/srv/inbox", "/srv/inbox/../other", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"a.json":          "{}",
		"ignore.txt":      "x",
		"nested/b.json":   "{}",
		"nested/skip.csv": "x",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"recursive extensions", Config{Extensions: []string{".json"}, Recursive: true}, []string{"a.json", "b.json"}},
		{"flat", Config{Extensions: []string{".json"}}, []string{"a.json"}},
		{"pattern", Config{Patterns: []string{"nested/*.json"}, Recursive: true}, []string{"b.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			tt.cfg.Directories = []string{dir}
			w := New(tt.cfg, c.handle)
			if err := w.Start(context.Background()); err != nil {
				t.Fatal(err)
			}
			defer w.Stop()
			w.SyncExistingFiles()

			got := c.snapshot()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, suffix := range tt.want {
				if !c.has(suffix) {
					t.Errorf("missing %s in %v", suffix, got)
				}
			}
		})
	}
}

func TestWatcher_Start_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "new")
	w := New(Config{Directories: []string{root}, Recursive: true}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectoryIsProcessed(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}
	w := New(Config{Directories: []string{dir}, Extensions: []string{".json"}, Recursive: true, Debounce: 100 * time.Millisecond}, c.handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "term2", "class-8a")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "deep.json"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return c.has("deep.json") })
	if !c.has("deep.json") {
		t.Errorf("expected deep.json to be processed, got %v", c.snapshot())
	}
}

func TestWatcher_RemoveHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	var (
		mu      sync.Mutex
		removed []string
	)
	w := New(Config{Directories: []string{dir}, Extensions: []string{".json"}}, nil,
		WithRemoveHandler(func(p string) {
			mu.Lock()
			removed = append(removed, p)
			mu.Unlock()
		}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(removed) > 0
	})
	mu.Lock()
	defer mu.Unlock()
	if len(removed) != 1 || filepath.Base(removed[0]) != "gone.json" {
		t.Errorf("removed = %v", removed)
	}
}
