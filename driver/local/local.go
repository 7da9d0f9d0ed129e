// Package local implements the directory backend: bundle paths map 1:1
// onto a native directory tree rooted at the bundle path.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobeaver/bundlekit"
)

// Backend maps native bundle paths directly onto a directory tree.
type Backend struct {
	root     string
	filePerm os.FileMode
	dirPerm  os.FileMode
}

// New creates a directory backend rooted at root. In write mode a missing
// root directory is created; in read mode it must already exist.
func New(cfg *bundlekit.Config, root string, mode bundlekit.Mode) (*Backend, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, bundlekit.NewPathError("open", root, err)
	}

	filePerm, err := cfg.FilePerm()
	if err != nil {
		return nil, bundlekit.NewPathError("open", root, err)
	}
	dirPerm, err := cfg.DirPerm()
	if err != nil {
		return nil, bundlekit.NewPathError("open", root, err)
	}

	info, err := os.Stat(absRoot)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, bundlekit.NewPathError("open", root, bundlekit.ErrNotDir)
		}
	case os.IsNotExist(err):
		if mode != bundlekit.ModeWrite {
			return nil, bundlekit.NewPathError("open", root, bundlekit.ErrNotExist)
		}
		if err := os.Mkdir(absRoot, dirPerm); err != nil {
			return nil, bundlekit.NewPathError("open", root, err)
		}
	default:
		return nil, bundlekit.NewPathError("open", root, err)
	}

	return &Backend{
		root:     absRoot,
		filePerm: filePerm,
		dirPerm:  dirPerm,
	}, nil
}

// resolve maps a native bundle path onto the directory tree.
func (b *Backend) resolve(p string) string {
	return filepath.Join(b.root, filepath.Clean("/"+filepath.FromSlash(p)))
}

// isPathUnderRoot checks that a resolved path did not escape the root
func isPathUnderRoot(root, p string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

// Open implements bundlekit.Backend
func (b *Backend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return nil, bundlekit.NewPathError("open", p, bundlekit.ErrNotAllowed)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bundlekit.NewPathError("open", p, bundlekit.ErrNotExist)
		}
		return nil, bundlekit.NewPathError("open", p, err)
	}
	return f, nil
}

// Create implements bundlekit.Backend
func (b *Backend) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return nil, bundlekit.NewPathError("create", p, bundlekit.ErrNotAllowed)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, b.filePerm)
	if err != nil {
		return nil, bundlekit.NewPathError("create", p, err)
	}
	return f, nil
}

// Remove implements bundlekit.Backend
func (b *Backend) Remove(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return bundlekit.NewPathError("remove", p, bundlekit.ErrNotAllowed)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return bundlekit.NewPathError("remove", p, bundlekit.ErrNotExist)
		}
		return bundlekit.NewPathError("remove", p, err)
	}
	return nil
}

// MakeDir implements bundlekit.Backend
func (b *Backend) MakeDir(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return bundlekit.NewPathError("makedir", p, bundlekit.ErrNotAllowed)
	}

	if err := os.Mkdir(fullPath, b.dirPerm); err != nil {
		return bundlekit.NewPathError("makedir", p, err)
	}
	return nil
}

// RemoveDir implements bundlekit.Backend
func (b *Backend) RemoveDir(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return bundlekit.NewPathError("removedir", p, bundlekit.ErrNotAllowed)
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return bundlekit.NewPathError("removedir", p, err)
	}
	return nil
}

// Move implements bundlekit.Backend
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	return b.rename(ctx, "move", src, dst)
}

// MoveDir implements bundlekit.Backend
func (b *Backend) MoveDir(ctx context.Context, src, dst string) error {
	return b.rename(ctx, "movedir", src, dst)
}

func (b *Backend) rename(ctx context.Context, op, src, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	srcPath := b.resolve(src)
	dstPath := b.resolve(dst)
	if !isPathUnderRoot(b.root, srcPath) || !isPathUnderRoot(b.root, dstPath) {
		return bundlekit.NewPathError(op, src, bundlekit.ErrNotAllowed)
	}

	if err := os.Rename(srcPath, dstPath); err != nil {
		if os.IsNotExist(err) {
			return bundlekit.NewPathError(op, src, bundlekit.ErrNotExist)
		}
		return bundlekit.NewPathError(op, src, err)
	}
	return nil
}

// Exists implements bundlekit.Backend
func (b *Backend) Exists(ctx context.Context, p string) bool {
	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return false
	}
	_, err := os.Stat(fullPath)
	return err == nil
}

// IsDir implements bundlekit.Backend
func (b *Backend) IsDir(ctx context.Context, p string) bool {
	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.IsDir()
}

// List implements bundlekit.Backend
func (b *Backend) List(ctx context.Context, p string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return nil, bundlekit.NewPathError("list", p, bundlekit.ErrNotAllowed)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bundlekit.NewPathError("list", p, bundlekit.ErrNotExist)
		}
		return nil, bundlekit.NewPathError("list", p, err)
	}

	// os.ReadDir returns entries sorted by name
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// ModTime implements bundlekit.Backend
func (b *Backend) ModTime(ctx context.Context, p string) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	default:
	}

	fullPath := b.resolve(p)
	if !isPathUnderRoot(b.root, fullPath) {
		return time.Time{}, bundlekit.NewPathError("modtime", p, bundlekit.ErrNotAllowed)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, bundlekit.NewPathError("modtime", p, bundlekit.ErrNotExist)
		}
		return time.Time{}, bundlekit.NewPathError("modtime", p, err)
	}
	return info.ModTime(), nil
}

// Close implements bundlekit.Backend. The directory backend holds no
// native resources between operations.
func (b *Backend) Close() error {
	return nil
}

// Ensure Backend implements interfaces
var (
	_ bundlekit.Backend = (*Backend)(nil)
	_ bundlekit.Watcher = (*Backend)(nil)
)
