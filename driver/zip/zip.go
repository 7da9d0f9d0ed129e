// Package zip implements the archive backend: bundle paths map onto
// entries of a ZIP container. A write-mode backend loads the container
// into memory and rewrites it through a temp file and rename at Close.
package zip

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gobeaver/bundlekit"
)

// entry represents a file or directory in the container.
type entry struct {
	isDir   bool
	content []byte    // write mode: full contents in memory
	file    *zip.File // read mode: opened on demand
	modTime time.Time
}

// Backend maps native bundle paths onto ZIP container entries.
type Backend struct {
	path     string
	mode     bundlekit.Mode
	method   uint16
	reader   *zip.ReadCloser // read mode only
	entries  map[string]*entry
	modified bool
}

// New opens the ZIP container at zipPath. In read mode entries are indexed
// from the central directory and opened on demand. In write mode the whole
// container is loaded into memory and a missing container is created empty
// on the spot.
func New(cfg *bundlekit.Config, zipPath string, mode bundlekit.Mode) (*Backend, error) {
	b := &Backend{
		path:    zipPath,
		mode:    mode,
		method:  compressionMethod(cfg),
		entries: make(map[string]*entry),
	}

	switch mode {
	case bundlekit.ModeRead:
		reader, err := zip.OpenReader(zipPath)
		if err != nil {
			return nil, bundlekit.NewPathError("open", zipPath, err)
		}
		b.reader = reader
		for _, f := range reader.File {
			name := normalizePath(f.Name)
			if name == "" {
				continue
			}
			b.entries[name] = &entry{
				isDir:   f.FileInfo().IsDir(),
				file:    f,
				modTime: f.Modified,
			}
			b.ensureParentDirs(name)
		}
		return b, nil

	case bundlekit.ModeWrite:
		if _, err := os.Stat(zipPath); os.IsNotExist(err) {
			if err := writeEmptyArchive(zipPath); err != nil {
				return nil, bundlekit.NewPathError("open", zipPath, err)
			}
			return b, nil
		}
		if err := b.loadAll(); err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, bundlekit.NewPathError("open", zipPath, bundlekit.ErrNotAllowed)
	}
}

// writeEmptyArchive creates a valid zero-entry container.
func writeEmptyArchive(zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	w := zip.NewWriter(f)
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// loadAll reads every entry of an existing container into memory.
func (b *Backend) loadAll() error {
	reader, err := zip.OpenReader(b.path)
	if err != nil {
		return bundlekit.NewPathError("open", b.path, err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		name := normalizePath(f.Name)
		if name == "" {
			continue
		}
		e := &entry{
			isDir:   f.FileInfo().IsDir(),
			modTime: f.Modified,
		}
		if !e.isDir {
			rc, err := f.Open()
			if err != nil {
				return bundlekit.NewPathError("open", b.path, err)
			}
			e.content, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return bundlekit.NewPathError("open", b.path, err)
			}
		}
		b.entries[name] = e
		b.ensureParentDirs(name)
	}
	return nil
}

// Close finalizes the backend. A modified write-mode container is
// rewritten through a temp file and renamed into place.
func (b *Backend) Close() error {
	if b.reader != nil {
		err := b.reader.Close()
		b.reader = nil
		return err
	}
	if b.mode == bundlekit.ModeWrite && b.modified {
		return b.rewrite()
	}
	return nil
}

// rewrite writes all entries to a fresh container and replaces the
// original atomically.
func (b *Backend) rewrite() error {
	tmpPath := b.path + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return bundlekit.NewPathError("close", b.path, err)
	}

	writer := zip.NewWriter(tmpFile)

	// Sort names for consistent output
	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	fail := func(err error) error {
		writer.Close()
		tmpFile.Close()
		os.Remove(tmpPath)
		return bundlekit.NewPathError("close", b.path, err)
	}

	for _, name := range names {
		e := b.entries[name]
		header := &zip.FileHeader{
			Name:     name,
			Method:   b.method,
			Modified: e.modTime,
		}
		if e.isDir {
			header.Name = name + "/"
			header.Method = zip.Store
			header.SetMode(os.ModeDir | 0755)
			if _, err := writer.CreateHeader(header); err != nil {
				return fail(err)
			}
			continue
		}
		header.SetMode(0644)
		w, err := writer.CreateHeader(header)
		if err != nil {
			return fail(err)
		}
		if _, err := w.Write(e.content); err != nil {
			return fail(err)
		}
	}

	if err := writer.Close(); err != nil {
		return fail(err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return bundlekit.NewPathError("close", b.path, err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return bundlekit.NewPathError("close", b.path, err)
	}
	return nil
}

// Open implements bundlekit.Backend
func (b *Backend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)
	e, ok := b.entries[p]
	if !ok {
		return nil, bundlekit.NewPathError("open", p, bundlekit.ErrNotExist)
	}
	if e.isDir {
		return nil, bundlekit.NewPathError("open", p, bundlekit.ErrIsDir)
	}
	if e.file != nil {
		rc, err := e.file.Open()
		if err != nil {
			return nil, bundlekit.NewPathError("open", p, err)
		}
		return rc, nil
	}
	return io.NopCloser(bytes.NewReader(e.content)), nil
}

// Create implements bundlekit.Backend
func (b *Backend) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if b.mode == bundlekit.ModeRead {
		return nil, bundlekit.NewPathError("create", p, bundlekit.ErrNotAllowed)
	}

	p = normalizePath(p)
	if !isValidPath(p) {
		return nil, bundlekit.NewPathError("create", p, bundlekit.ErrNotAllowed)
	}
	if e, ok := b.entries[p]; ok && e.isDir {
		return nil, bundlekit.NewPathError("create", p, bundlekit.ErrIsDir)
	}

	return &entryWriter{backend: b, path: p}, nil
}

// entryWriter buffers a new entry's content and commits it on Close.
type entryWriter struct {
	backend *Backend
	path    string
	buf     bytes.Buffer
	closed  bool
}

func (w *entryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, bundlekit.NewPathError("write", w.path, bundlekit.ErrClosed)
	}
	return w.buf.Write(p)
}

func (w *entryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	b := w.backend
	b.entries[w.path] = &entry{
		content: w.buf.Bytes(),
		modTime: time.Now(),
	}
	b.ensureParentDirs(w.path)
	b.modified = true
	return nil
}

// Remove implements bundlekit.Backend
func (b *Backend) Remove(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if b.mode == bundlekit.ModeRead {
		return bundlekit.NewPathError("remove", p, bundlekit.ErrNotAllowed)
	}

	p = normalizePath(p)
	e, ok := b.entries[p]
	if !ok {
		return bundlekit.NewPathError("remove", p, bundlekit.ErrNotExist)
	}
	if e.isDir {
		return bundlekit.NewPathError("remove", p, bundlekit.ErrIsDir)
	}

	delete(b.entries, p)
	b.modified = true
	return nil
}

// MakeDir implements bundlekit.Backend
func (b *Backend) MakeDir(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if b.mode == bundlekit.ModeRead {
		return bundlekit.NewPathError("makedir", p, bundlekit.ErrNotAllowed)
	}

	p = normalizePath(p)
	if !isValidPath(p) {
		return bundlekit.NewPathError("makedir", p, bundlekit.ErrNotAllowed)
	}
	if e, ok := b.entries[p]; ok {
		if !e.isDir {
			return bundlekit.NewPathError("makedir", p, bundlekit.ErrExist)
		}
		return nil
	}

	b.entries[p] = &entry{isDir: true, modTime: time.Now()}
	b.ensureParentDirs(p)
	b.modified = true
	return nil
}

// RemoveDir implements bundlekit.Backend
func (b *Backend) RemoveDir(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if b.mode == bundlekit.ModeRead {
		return bundlekit.NewPathError("removedir", p, bundlekit.ErrNotAllowed)
	}

	p = normalizePath(p)
	e, ok := b.entries[p]
	if !ok {
		return bundlekit.NewPathError("removedir", p, bundlekit.ErrNotExist)
	}
	if !e.isDir {
		return bundlekit.NewPathError("removedir", p, bundlekit.ErrNotDir)
	}

	prefix := p + "/"
	for name := range b.entries {
		if name == p || strings.HasPrefix(name, prefix) {
			delete(b.entries, name)
		}
	}
	b.modified = true
	return nil
}

// Move implements bundlekit.Backend
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if b.mode == bundlekit.ModeRead {
		return bundlekit.NewPathError("move", src, bundlekit.ErrNotAllowed)
	}

	src = normalizePath(src)
	dst = normalizePath(dst)
	if !isValidPath(dst) {
		return bundlekit.NewPathError("move", dst, bundlekit.ErrNotAllowed)
	}

	e, ok := b.entries[src]
	if !ok {
		return bundlekit.NewPathError("move", src, bundlekit.ErrNotExist)
	}
	if e.isDir {
		return bundlekit.NewPathError("move", src, bundlekit.ErrIsDir)
	}
	if err := b.requireParentDir("move", dst); err != nil {
		return err
	}

	moved, err := b.materialize(e)
	if err != nil {
		return bundlekit.NewPathError("move", src, err)
	}

	b.entries[dst] = moved
	delete(b.entries, src)
	b.modified = true
	return nil
}

// MoveDir implements bundlekit.Backend
func (b *Backend) MoveDir(ctx context.Context, src, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if b.mode == bundlekit.ModeRead {
		return bundlekit.NewPathError("movedir", src, bundlekit.ErrNotAllowed)
	}

	src = normalizePath(src)
	dst = normalizePath(dst)
	if !isValidPath(dst) {
		return bundlekit.NewPathError("movedir", dst, bundlekit.ErrNotAllowed)
	}

	e, ok := b.entries[src]
	if !ok {
		return bundlekit.NewPathError("movedir", src, bundlekit.ErrNotExist)
	}
	if !e.isDir {
		return bundlekit.NewPathError("movedir", src, bundlekit.ErrNotDir)
	}
	if err := b.requireParentDir("movedir", dst); err != nil {
		return err
	}

	prefix := src + "/"
	renames := make(map[string]*entry)
	for name, child := range b.entries {
		if name != src && !strings.HasPrefix(name, prefix) {
			continue
		}
		moved, err := b.materialize(child)
		if err != nil {
			return bundlekit.NewPathError("movedir", name, err)
		}
		renames[dst+name[len(src):]] = moved
		delete(b.entries, name)
	}
	for name, child := range renames {
		b.entries[name] = child
	}
	b.modified = true
	return nil
}

// requireParentDir fails with ErrNotExist when the destination's parent
// directory is missing. Renames do not create parents; that matches the
// directory backend, where os.Rename into a missing directory fails.
func (b *Backend) requireParentDir(op, dst string) error {
	parent := path.Dir(dst)
	if parent == "." || parent == "/" {
		return nil
	}
	e, ok := b.entries[parent]
	if !ok || !e.isDir {
		return bundlekit.NewPathError(op, dst, bundlekit.ErrNotExist)
	}
	return nil
}

// materialize returns an in-memory copy of an entry, reading read-mode
// content from the container when necessary.
func (b *Backend) materialize(e *entry) (*entry, error) {
	out := &entry{isDir: e.isDir, content: e.content, modTime: e.modTime}
	if e.file != nil && !e.isDir {
		rc, err := e.file.Open()
		if err != nil {
			return nil, err
		}
		out.content, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Exists implements bundlekit.Backend
func (b *Backend) Exists(ctx context.Context, p string) bool {
	p = normalizePath(p)
	if p == "" {
		return true
	}
	_, ok := b.entries[p]
	return ok
}

// IsDir implements bundlekit.Backend
func (b *Backend) IsDir(ctx context.Context, p string) bool {
	p = normalizePath(p)
	if p == "" {
		return true
	}
	e, ok := b.entries[p]
	return ok && e.isDir
}

// List implements bundlekit.Backend
func (b *Backend) List(ctx context.Context, p string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)
	if p != "" {
		e, ok := b.entries[p]
		if !ok {
			return nil, bundlekit.NewPathError("list", p, bundlekit.ErrNotExist)
		}
		if !e.isDir {
			return nil, bundlekit.NewPathError("list", p, bundlekit.ErrNotDir)
		}
	}

	parent := p
	if parent == "" {
		parent = "."
	}

	names := make([]string, 0)
	for name := range b.entries {
		if path.Dir(name) == parent {
			names = append(names, path.Base(name))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ModTime implements bundlekit.Backend
func (b *Backend) ModTime(ctx context.Context, p string) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	default:
	}

	p = normalizePath(p)
	e, ok := b.entries[p]
	if !ok {
		return time.Time{}, bundlekit.NewPathError("modtime", p, bundlekit.ErrNotExist)
	}
	return e.modTime, nil
}

// ensureParentDirs creates directory entries for every ancestor of p.
func (b *Backend) ensureParentDirs(p string) {
	for dir := path.Dir(p); dir != "" && dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := b.entries[dir]; !ok {
			b.entries[dir] = &entry{isDir: true, modTime: time.Now()}
		}
	}
}

// normalizePath normalizes an entry name
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidPath checks that a path cannot escape the container namespace.
// Only a ".." component is a traversal; names merely containing dots,
// like "A_..glif", are legitimate.
func isValidPath(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func compressionMethod(cfg *bundlekit.Config) uint16 {
	if cfg != nil && cfg.ZipCompression == "store" {
		return zip.Store
	}
	return zip.Deflate
}

// Ensure Backend implements interfaces
var _ bundlekit.Backend = (*Backend)(nil)
