package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gobeaver/bundlekit"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	b, err := New(bundlekit.DefaultConfig(), filepath.Join(t.TempDir(), "Test.ufo"), bundlekit.ModeWrite)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func writeFile(t *testing.T, b *Backend, path, content string) {
	t.Helper()

	w, err := b.Create(context.Background(), path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func TestNew(t *testing.T) {
	t.Run("write mode creates the root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "New.ufo")
		b, err := New(bundlekit.DefaultConfig(), root, bundlekit.ModeWrite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer b.Close()

		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			t.Errorf("root not created: %v", err)
		}
	})

	t.Run("read mode requires an existing root", func(t *testing.T) {
		_, err := New(bundlekit.DefaultConfig(), filepath.Join(t.TempDir(), "missing"), bundlekit.ModeRead)
		if !bundlekit.IsNotExist(err) {
			t.Errorf("error = %v, want ErrNotExist", err)
		}
	})

	t.Run("root must be a directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(root, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := New(bundlekit.DefaultConfig(), root, bundlekit.ModeRead)
		if !errors.Is(err, bundlekit.ErrNotDir) {
			t.Errorf("error = %v, want ErrNotDir", err)
		}
	})
}

func TestFileOperations(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	t.Run("create and open", func(t *testing.T) {
		writeFile(t, b, "metainfo.plist", "meta")

		rc, err := b.Open(ctx, "metainfo.plist")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "meta" {
			t.Errorf("content = %q, want %q", data, "meta")
		}
	})

	t.Run("open missing file", func(t *testing.T) {
		_, err := b.Open(ctx, "ghost.plist")
		if !bundlekit.IsNotExist(err) {
			t.Errorf("error = %v, want ErrNotExist", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		writeFile(t, b, "doomed.txt", "x")
		if err := b.Remove(ctx, "doomed.txt"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if b.Exists(ctx, "doomed.txt") {
			t.Error("file still exists")
		}
	})

	t.Run("move", func(t *testing.T) {
		writeFile(t, b, "from.txt", "payload")
		if err := b.Move(ctx, "from.txt", "to.txt"); err != nil {
			t.Fatalf("move: %v", err)
		}
		if b.Exists(ctx, "from.txt") || !b.Exists(ctx, "to.txt") {
			t.Error("move incomplete")
		}
	})

	t.Run("mod time", func(t *testing.T) {
		writeFile(t, b, "timed.txt", "x")
		mt, err := b.ModTime(ctx, "timed.txt")
		if err != nil {
			t.Fatalf("modtime: %v", err)
		}
		if mt.IsZero() {
			t.Error("mod time is zero")
		}
	})
}

func TestDirectoryOperations(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	if err := b.MakeDir(ctx, "glyphs"); err != nil {
		t.Fatalf("makedir: %v", err)
	}
	if !b.IsDir(ctx, "glyphs") {
		t.Error("directory not created")
	}

	writeFile(t, b, "glyphs/A_.glif", "a")
	writeFile(t, b, "glyphs/B_.glif", "b")

	names, err := b.List(ctx, "glyphs")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"A_.glif", "B_.glif"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("list = %v, want %v", names, want)
	}

	if err := b.MoveDir(ctx, "glyphs", "glyphs.backup"); err != nil {
		t.Fatalf("movedir: %v", err)
	}
	if !b.Exists(ctx, "glyphs.backup/A_.glif") {
		t.Error("directory move lost contents")
	}

	if err := b.RemoveDir(ctx, "glyphs.backup"); err != nil {
		t.Fatalf("removedir: %v", err)
	}
	if b.Exists(ctx, "glyphs.backup") {
		t.Error("directory still exists")
	}
}

func TestPathConfinement(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	// Traversal components are cleaned relative to the root, never
	// resolved outside it.
	writeFile(t, b, "../escape.txt", "x")
	if _, err := os.Stat(filepath.Join(b.root, "..", "escape.txt")); err == nil {
		t.Error("write escaped the bundle root")
	}
	if !b.Exists(ctx, "escape.txt") {
		t.Error("cleaned path not written inside the root")
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newTestBackend(t)

	token, err := b.Watch(ctx, "*.plist")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !token.ActiveChangeCallbacks() {
		t.Error("local watch token should raise callbacks")
	}

	fired := make(chan struct{})
	token.RegisterChangeCallback(func() { close(fired) })

	// Give the watcher goroutine a moment to start.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, b, "fontinfo.plist", "data")

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("change token did not fire")
	}
	if !token.HasChanged() {
		t.Error("token did not record the change")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := newTestBackend(t)

	token, err := b.Watch(ctx, "*.plist")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(100 * time.Millisecond)

	// The watch is torn down with the context; a matching write after
	// cancellation must not reach the token.
	writeFile(t, b, "fontinfo.plist", "data")
	time.Sleep(200 * time.Millisecond)

	if token.HasChanged() {
		t.Error("token fired after the watch context was cancelled")
	}
}

func TestWatchIgnoresNonMatching(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newTestBackend(t)

	token, err := b.Watch(ctx, "*.plist")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	writeFile(t, b, "notes.txt", "data")
	time.Sleep(200 * time.Millisecond)

	if token.HasChanged() {
		t.Error("token fired for a non-matching file")
	}
}
