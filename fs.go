package bundlekit

import (
	"context"
	"io"
	"time"
)

// ============================================================================
// Backend Interface
// ============================================================================

// Backend is the capability set a physical bundle store must provide.
// Exactly two implementations exist: the directory backend
// (github.com/gobeaver/bundlekit/driver/local) and the archive backend
// (github.com/gobeaver/bundlekit/driver/zip). The backend for a bundle is
// selected once at construction and never changes.
//
// All paths are native paths: forward-slash relative paths that already
// include the archive root prefix when one applies. The Bundle facade is
// the only caller and performs the logical-to-native translation.
type Backend interface {
	// Open returns a stream for reading the file at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create returns a stream that writes the file at path, replacing any
	// previous content. The parent directory must already exist.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Remove deletes the file at path.
	Remove(ctx context.Context, path string) error

	// MakeDir creates the directory at path. The parent must exist.
	MakeDir(ctx context.Context, path string) error

	// RemoveDir deletes the directory at path and everything below it.
	RemoveDir(ctx context.Context, path string) error

	// Move renames the file at src to dst.
	Move(ctx context.Context, src, dst string) error

	// MoveDir renames the directory at src to dst.
	MoveDir(ctx context.Context, src, dst string) error

	// Exists reports whether a file or directory exists at path.
	Exists(ctx context.Context, path string) bool

	// IsDir reports whether path exists and is a directory.
	IsDir(ctx context.Context, path string) bool

	// List returns the names of the immediate children of the directory at
	// path, sorted. The empty path lists the top level.
	List(ctx context.Context, path string) ([]string, error)

	// ModTime returns the stored modification time of the file at path.
	ModTime(ctx context.Context, path string) (time.Time, error)

	// Close releases the backend. For archive backends this finalizes the
	// container; it must be called exactly once.
	Close() error
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Backends may expose optional capabilities beyond the core set. Use type
// assertion to check for support:
//
//	if w, ok := backend.(bundlekit.Watcher); ok {
//	    token, err := w.Watch(ctx, "glyphs/*.plist")
//	}

// Watcher indicates the backend supports file change notifications.
// The directory backend watches native filesystem events; archive contents
// never change underneath a handle, so the archive backend does not
// implement this.
type Watcher interface {
	// Watch creates a change token for the given glob pattern. The token
	// signals when any matching file is created, modified, or deleted.
	// The watch runs until the token fires or ctx is cancelled; the
	// caller must cancel ctx to release a watch that never fires.
	Watch(ctx context.Context, pattern string) (ChangeToken, error)
}

// ChangeToken represents a change notification token.
//
// Consumers can either poll HasChanged or register a callback. Check
// ActiveChangeCallbacks to know which approach the implementation supports
// efficiently. Tokens are single-use: once HasChanged reports true it stays
// true.
type ChangeToken interface {
	// HasChanged returns true once a change has occurred.
	HasChanged() bool

	// ActiveChangeCallbacks indicates whether the token proactively raises
	// callbacks. If false, consumers should poll HasChanged instead.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback invoked when a change
	// occurs. Returns a function that unregisters the callback.
	RegisterChangeCallback(callback func()) (unregister func())
}
