// Package bundlekit provides a uniform path-based storage abstraction for
// structured font-source bundles that may be stored either as a plain
// directory tree or as a single-root ZIP archive.
//
// Clients address files and directories by forward-slash logical paths
// relative to the bundle root and never see which physical backend is in
// use. The physical structure is sniffed at open time by content, and for
// archive bundles the single top-level wrapper directory is transparently
// stripped from and re-added to every path.
//
// # Backends
//
// Two backends exist, one per structure, each in its own driver package:
//
//   - Directory trees (github.com/gobeaver/bundlekit/driver/local)
//   - ZIP archives (github.com/gobeaver/bundlekit/driver/zip)
//
// Drivers register themselves on import; blank-import the ones a program
// needs. Opening an archive bundle without the zip driver linked in fails
// with [ErrCapabilityUnavailable].
//
// # Basic Usage
//
//	import (
//	    "github.com/gobeaver/bundlekit"
//
//	    _ "github.com/gobeaver/bundlekit/driver/local"
//	    _ "github.com/gobeaver/bundlekit/driver/zip"
//	)
//
//	b, err := bundlekit.Open("My.ufo", bundlekit.ModeWrite)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	ctx := context.Background()
//
//	// Write a file; missing parent directories are created.
//	err = b.WriteBytes(ctx, "glyphs/A_.glif", data)
//
//	// Read a file; a nil slice means the file does not exist.
//	data, err := b.ReadBytes(ctx, "metainfo.plist")
//
//	// List a directory tree.
//	paths, err := b.List(ctx, "glyphs", true)
//
// # Writes
//
// [Bundle.WriteBytes] is change-detecting: rewriting identical content is
// skipped so stored modification times survive, and writing empty data
// creates nothing. It is not crash-atomic for directory bundles; archive
// bundles rewrite their container through a temp file and rename at Close.
//
// # Property Lists
//
// [Bundle.ReadPlist] and [Bundle.WritePlist] layer a narrow codec boundary
// over the raw byte operations. The default codec produces XML property
// lists; supply another with [WithCodec].
package bundlekit
