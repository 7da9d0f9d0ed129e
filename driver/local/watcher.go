package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/gobeaver/bundlekit"
)

// Watch implements bundlekit.Watcher using fsnotify for native file system
// events. The pattern is a glob over forward-slash bundle paths; "**"
// matches across directory separators. The watcher goroutine exits on the
// first match or when ctx is cancelled, whichever comes first.
func (b *Backend) Watch(ctx context.Context, pattern string) (bundlekit.ChangeToken, error) {
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, bundlekit.NewPathError("watch", pattern, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, bundlekit.NewPathError("watch", pattern, err)
	}

	if err := watcher.Add(b.root); err != nil {
		watcher.Close()
		return nil, bundlekit.NewPathError("watch", pattern, err)
	}

	// Recursive patterns need every subdirectory watched: fsnotify does
	// not descend on its own.
	if strings.Contains(pattern, "**") {
		filepath.Walk(b.root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				watcher.Add(p)
			}
			return nil
		})
	}

	token := bundlekit.NewCallbackChangeToken()

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(b.root, event.Name)
				if err != nil {
					continue
				}
				rel = filepath.ToSlash(rel)
				if matcher.Match(rel) || matcher.Match(filepath.Base(rel)) {
					token.SignalChange()
					return // Token is spent after first change
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return token, nil
}
