package bundlekit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"
)

// SyntheticRoot is the root name assigned to an archive bundle that is
// empty at open time.
const SyntheticRoot = "contents"

// maxListDepth bounds recursive listing. The limit guards against symlink
// cycles and pathological nesting, not legitimate bundle depth.
const maxListDepth = 100

// Bundle is a handle on a font-source bundle stored either as a directory
// tree or as a single-root ZIP archive. All operations take forward-slash
// logical paths relative to the bundle root; the handle translates them to
// the backend's native addressing.
//
// A Bundle is not safe for concurrent use. Operations through a single
// handle observe a strictly sequential view of prior writes through that
// handle; concurrent external modification of the underlying storage while
// a handle is open is undefined. Call Close exactly once when done.
type Bundle struct {
	path      string
	mode      Mode
	structure Structure
	rooter    rooter
	backend   Backend
	cfg       *Config
	codec     Codec
	closed    bool
}

// Open opens the bundle at the given filesystem path.
//
// In read mode the path must exist and its structure is sniffed. In write
// mode an existing bundle is sniffed and, when an explicit structure was
// requested, validated against it; a missing bundle is created with the
// requested structure (falling back to the configured default).
//
// For archive bundles the logical root is resolved at open time: an empty
// archive gets the synthetic root "contents", an archive with exactly one
// top-level entry uses that entry's name, and anything else fails with
// ErrMultipleRoots.
func Open(bundlePath string, mode Mode, options ...Option) (*Bundle, error) {
	opts := processOptions(options...)

	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	codec := opts.Codec
	if codec == nil {
		codec = XMLPlistCodec{}
	}

	b := &Bundle{
		path:  bundlePath,
		mode:  mode,
		cfg:   cfg,
		codec: codec,
	}

	// A pre-supplied backend bypasses sniffing and backend selection.
	if opts.Backend != nil {
		b.backend = opts.Backend
		b.structure = opts.Structure
		return b, nil
	}

	structure := opts.Structure
	switch mode {
	case ModeRead:
		sniffed, err := Sniff(bundlePath)
		if err != nil {
			return nil, err
		}
		structure = sniffed
	case ModeWrite:
		if _, err := os.Stat(bundlePath); err == nil {
			sniffed, serr := Sniff(bundlePath)
			if serr != nil {
				return nil, serr
			}
			if structure != "" && structure != sniffed {
				return nil, NewPathError("open", bundlePath, ErrStructureMismatch)
			}
			structure = sniffed
		} else if !os.IsNotExist(err) {
			return nil, NewPathError("open", bundlePath, err)
		} else {
			if structure == "" {
				structure = Structure(cfg.Structure)
			}
			if structure != StructureDirectory && structure != StructureArchive {
				return nil, NewPathError("open", bundlePath, ErrUnknownStructure)
			}
		}
	default:
		return nil, NewPathError("open", bundlePath, fmt.Errorf("invalid mode %d", mode))
	}

	caps := opts.Capabilities
	if caps == nil {
		caps = DefaultCapabilities()
	}

	backend, err := caps.New(structure, cfg, bundlePath, mode)
	if err != nil {
		return nil, err
	}
	b.backend = backend
	b.structure = structure

	if structure == StructureArchive {
		if err := b.resolveArchiveRoot(); err != nil {
			backend.Close()
			return nil, err
		}
	}

	return b, nil
}

func (b *Bundle) resolveArchiveRoot() error {
	roots, err := b.backend.List(context.Background(), "")
	if err != nil {
		return err
	}
	switch len(roots) {
	case 0:
		b.rooter = rooter{root: SyntheticRoot}
		if b.mode == ModeWrite {
			if err := b.backend.MakeDir(context.Background(), SyntheticRoot); err != nil {
				return err
			}
		}
	case 1:
		b.rooter = rooter{root: roots[0]}
	default:
		return NewPathError("open", b.path, ErrMultipleRoots)
	}
	return nil
}

// Close releases the backend. For archive bundles opened in write mode this
// is what persists pending changes to the container.
func (b *Bundle) Close() error {
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	return b.backend.Close()
}

// Path returns the filesystem path the bundle was opened at.
func (b *Bundle) Path() string { return b.path }

// Mode returns the access mode the bundle was opened with.
func (b *Bundle) Mode() Mode { return b.mode }

// Structure returns the physical structure of the bundle.
func (b *Bundle) Structure() Structure { return b.structure }

// RootName returns the archive root name. It is empty for directory
// bundles.
func (b *Bundle) RootName() string { return b.rooter.root }

func (b *Bundle) writable(op, p string) error {
	if b.closed {
		return NewPathError(op, p, ErrClosed)
	}
	if b.mode != ModeWrite {
		return NewPathError(op, p, ErrNotAllowed)
	}
	return nil
}

// ============================================================================
// Path Predicates
// ============================================================================

// Exists reports whether a file or directory exists at the logical path.
func (b *Bundle) Exists(ctx context.Context, p string) bool {
	return b.backend.Exists(ctx, b.rooter.toNative(p))
}

// IsDir reports whether the logical path exists and is a directory.
func (b *Bundle) IsDir(ctx context.Context, p string) bool {
	return b.backend.IsDir(ctx, b.rooter.toNative(p))
}

// List returns the contents of the directory at the logical path, relative
// to that path. Without recurse it returns the immediate children,
// directories included. With recurse it descends into subdirectories and
// returns file paths only, never the intermediate directories themselves.
//
// Recursion depth is bounded at 100; exceeding the bound fails with
// ErrRecursionLimit.
func (b *Bundle) List(ctx context.Context, dir string, recurse bool) ([]string, error) {
	return b.list(ctx, dir, recurse, dir, 0)
}

func (b *Bundle) list(ctx context.Context, dir string, recurse bool, relativeTo string, depth int) ([]string, error) {
	if depth > maxListDepth {
		return nil, NewPathError("list", relativeTo, ErrRecursionLimit)
	}

	names, err := b.backend.List(ctx, b.rooter.toNative(dir))
	if err != nil {
		return nil, err
	}

	prefix := relativeTo
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var result []string
	for _, name := range names {
		p := path.Join(dir, name)
		if recurse && b.IsDir(ctx, p) {
			sub, err := b.list(ctx, p, true, relativeTo, depth+1)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, strings.TrimPrefix(p, prefix))
		}
	}
	return result, nil
}

// ============================================================================
// Directories
// ============================================================================

// MakeDir creates the directory at the logical path along with any missing
// ancestors. It is idempotent: existing directories are left alone.
func (b *Bundle) MakeDir(ctx context.Context, p string) error {
	if err := b.writable("makedir", p); err != nil {
		return err
	}
	return b.makeDirs(ctx, p)
}

// makeDirs builds dir and its missing ancestors, outermost first.
func (b *Bundle) makeDirs(ctx context.Context, dir string) error {
	var parts []string
	for d := dir; d != "" && d != "." && d != "/"; d = path.Dir(d) {
		parts = append(parts, path.Base(d))
	}

	built := ""
	for i := len(parts) - 1; i >= 0; i-- {
		built = path.Join(built, parts[i])
		if b.Exists(ctx, built) {
			continue
		}
		if err := b.backend.MakeDir(ctx, b.rooter.toNative(built)); err != nil {
			return err
		}
	}
	return nil
}

// buildDirectoryTree creates the missing ancestor directories of a file
// path before it is written.
func (b *Bundle) buildDirectoryTree(ctx context.Context, filePath string) error {
	dir := path.Dir(filePath)
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	return b.makeDirs(ctx, dir)
}

// ============================================================================
// File Opener
// ============================================================================

// OpenRead returns a stream for reading the file at the logical path.
// It returns a nil stream and a nil error when the file does not exist:
// an absent optional file is a normal outcome, not a failure. It fails
// with ErrIsDir when the path is a directory.
//
// The caller owns the returned stream and must close it.
func (b *Bundle) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	if b.closed {
		return nil, NewPathError("open", p, ErrClosed)
	}
	native := b.rooter.toNative(p)
	if !b.backend.Exists(ctx, native) {
		return nil, nil
	}
	if b.backend.IsDir(ctx, native) {
		return nil, NewPathError("open", p, ErrIsDir)
	}
	return b.backend.Open(ctx, native)
}

// OpenWrite returns a stream that writes the file at the logical path,
// creating the missing ancestor directory chain first. It fails with
// ErrIsDir when the path is a directory and with ErrNotAllowed on a
// read-mode handle.
//
// The caller owns the returned stream and must close it.
func (b *Bundle) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := b.writable("open", p); err != nil {
		return nil, err
	}
	native := b.rooter.toNative(p)
	if b.backend.IsDir(ctx, native) {
		return nil, NewPathError("open", p, ErrIsDir)
	}
	if err := b.buildDirectoryTree(ctx, p); err != nil {
		return nil, err
	}
	return b.backend.Create(ctx, native)
}

// ============================================================================
// Raw Read/Write
// ============================================================================

// ReadBytes returns the contents of the file at the logical path, or a nil
// slice and a nil error when the file does not exist.
func (b *Bundle) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	f, err := b.OpenRead(ctx, p)
	if err != nil || f == nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewPathError("read", p, err)
	}
	return data, nil
}

// WriteBytes writes data to the file at the logical path, building the
// ancestor directory chain if needed.
//
// The write is change-detecting: when the file already holds exactly data,
// nothing is rewritten and the stored modification time is preserved.
// Writing empty data is a no-op that creates nothing. This is change
// detection, not crash atomicity: a write interrupted mid-flight can leave
// a truncated file. Archive bundles additionally rewrite their container
// through a temp file and rename at Close.
func (b *Bundle) WriteBytes(ctx context.Context, p string, data []byte) error {
	if err := b.writable("write", p); err != nil {
		return err
	}

	if b.Exists(ctx, p) {
		old, err := b.ReadBytes(ctx, p)
		if err != nil {
			return err
		}
		if bytes.Equal(old, data) {
			return nil
		}
	}
	if len(data) == 0 {
		return nil
	}

	f, err := b.OpenWrite(ctx, p)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return NewPathError("write", p, err)
	}
	if err := f.Close(); err != nil {
		return NewPathError("write", p, err)
	}
	return nil
}

// ============================================================================
// Removal
// ============================================================================

// Remove deletes the file or directory tree at the logical path, then
// prunes each ancestor directory left empty by the deletion, stopping at
// the first non-empty ancestor or the bundle root. Removing an absent path
// is a no-op.
func (b *Bundle) Remove(ctx context.Context, p string) error {
	if err := b.writable("remove", p); err != nil {
		return err
	}
	if !b.Exists(ctx, p) {
		return nil
	}

	native := b.rooter.toNative(p)
	if b.backend.IsDir(ctx, native) {
		if err := b.backend.RemoveDir(ctx, native); err != nil {
			return err
		}
	} else {
		if err := b.backend.Remove(ctx, native); err != nil {
			return err
		}
	}

	return b.pruneEmptyDirs(ctx, path.Dir(p))
}

// pruneEmptyDirs walks upward from dir removing each now-empty directory,
// stopping at the first non-empty one or at the bundle root.
func (b *Bundle) pruneEmptyDirs(ctx context.Context, dir string) error {
	for dir != "" && dir != "." && dir != "/" {
		if !b.Exists(ctx, dir) {
			return nil
		}
		names, err := b.backend.List(ctx, b.rooter.toNative(dir))
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return nil
		}
		if err := b.backend.RemoveDir(ctx, b.rooter.toNative(dir)); err != nil {
			return err
		}
		dir = path.Dir(dir)
	}
	return nil
}

// ============================================================================
// Move
// ============================================================================

// Move renames src to dst. It fails with ErrNotExist when src is absent
// and with ErrExist when dst is already present; there is no silent
// overwrite. Files and directories are moved with the backend's respective
// primitives.
func (b *Bundle) Move(ctx context.Context, src, dst string) error {
	if err := b.writable("move", src); err != nil {
		return err
	}
	if !b.Exists(ctx, src) {
		return NewPathError("move", src, ErrNotExist)
	}
	if b.Exists(ctx, dst) {
		return NewPathError("move", dst, ErrExist)
	}

	isDir := b.IsDir(ctx, src)
	nsrc := b.rooter.toNative(src)
	ndst := b.rooter.toNative(dst)
	if isDir {
		return b.backend.MoveDir(ctx, nsrc, ndst)
	}
	return b.backend.Move(ctx, nsrc, ndst)
}

// ============================================================================
// Modification Times
// ============================================================================

// ModTime returns the stored modification time of the file at the logical
// path. An absent path yields the zero time and a nil error.
func (b *Bundle) ModTime(ctx context.Context, p string) (time.Time, error) {
	if !b.Exists(ctx, p) {
		return time.Time{}, nil
	}
	return b.backend.ModTime(ctx, b.rooter.toNative(p))
}

// ============================================================================
// Integrity
// ============================================================================

// Checksum calculates the checksum of the file at the logical path using
// the given algorithm, returned hex-encoded.
func (b *Bundle) Checksum(ctx context.Context, p string, algorithm ChecksumAlgorithm) (string, error) {
	f, err := b.OpenRead(ctx, p)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", NewPathError("checksum", p, ErrNotExist)
	}
	defer f.Close()

	sum, err := CalculateChecksum(f, algorithm)
	if err != nil {
		return "", NewPathError("checksum", p, err)
	}
	return sum, nil
}

// ============================================================================
// Watching
// ============================================================================

// Watch creates a change token for the given glob pattern of logical
// paths. Directory bundles use native filesystem events; archive bundles
// return a token that never fires, since archive contents cannot change
// underneath the handle.
//
// The watch lives until the token fires or ctx is cancelled. Callers that
// may never see a change must cancel ctx to release the underlying
// watcher; passing context.Background() keeps it alive for the life of
// the process.
func (b *Bundle) Watch(ctx context.Context, pattern string) (ChangeToken, error) {
	if w, ok := b.backend.(Watcher); ok {
		return w.Watch(ctx, pattern)
	}
	return NeverChangeToken{}, nil
}

// ============================================================================
// Property Lists
// ============================================================================

// ReadPlist decodes the property list at the logical path into dst. A
// missing file fails with ErrNotExist; a file the codec cannot decode
// fails with ErrCorrupt, wrapped with the path and the original decode
// error. Use ReadOptionalPlist when the file is allowed to be absent.
func (b *Bundle) ReadPlist(ctx context.Context, p string, dst any) error {
	data, err := b.ReadBytes(ctx, p)
	if err != nil {
		return err
	}
	if data == nil {
		return NewPathError("readplist", p, fmt.Errorf("required file: %w", ErrNotExist))
	}
	if err := b.codec.Decode(data, dst); err != nil {
		return NewPathError("readplist", p, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	return nil
}

// ReadOptionalPlist decodes the property list at the logical path into
// dst, reporting whether the file was present. An absent file leaves dst
// untouched and returns false without error, so the caller's preset dst
// doubles as the default value.
func (b *Bundle) ReadOptionalPlist(ctx context.Context, p string, dst any) (bool, error) {
	data, err := b.ReadBytes(ctx, p)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := b.codec.Decode(data, dst); err != nil {
		return false, NewPathError("readplist", p, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	return true, nil
}

// WritePlist encodes v as a property list and persists it through the
// change-detecting WriteBytes, so rewriting an unchanged value preserves
// the file's modification time. A value the codec cannot encode fails with
// ErrMalformed, wrapped with the path and the original encode error.
func (b *Bundle) WritePlist(ctx context.Context, p string, v any) error {
	if err := b.writable("writeplist", p); err != nil {
		return err
	}
	data, err := b.codec.Encode(v)
	if err != nil {
		return NewPathError("writeplist", p, fmt.Errorf("%w: %w", ErrMalformed, err))
	}
	return b.WriteBytes(ctx, p, data)
}
