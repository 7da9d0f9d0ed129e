package bundlekit

import (
	"bytes"
	"io"
	"os"
)

// Structure is the physical storage form of a bundle.
type Structure string

const (
	// StructureDirectory is a bundle stored as a plain directory tree.
	StructureDirectory Structure = "directory"
	// StructureArchive is a bundle stored as a single-root ZIP archive.
	StructureArchive Structure = "archive"
)

// ZIP local-file, empty-archive and spanned-archive signatures. Detection
// goes by content, not file extension.
var zipSignatures = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06},
	{'P', 'K', 0x07, 0x08},
}

// Sniff classifies the filesystem path as a directory bundle or an archive
// bundle. It fails with ErrUnknownStructure when the path is neither a
// directory nor a recognizable ZIP container. Sniff has no side effects.
func Sniff(path string) (Structure, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewPathError("sniff", path, ErrNotExist)
		}
		return "", NewPathError("sniff", path, err)
	}

	if info.IsDir() {
		return StructureDirectory, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", NewPathError("sniff", path, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		// Too short to be an archive and not a directory.
		return "", NewPathError("sniff", path, ErrUnknownStructure)
	}

	for _, sig := range zipSignatures {
		if bytes.Equal(magic[:], sig) {
			return StructureArchive, nil
		}
	}

	return "", NewPathError("sniff", path, ErrUnknownStructure)
}
