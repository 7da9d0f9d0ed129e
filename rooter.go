package bundlekit

import (
	"path"
	"strings"
)

// rooter translates between logical bundle paths and native backend paths.
// Archives that wrap their contents under a single top-level directory get
// that directory name as root; everything else uses an empty root, which
// means no translation at all.
type rooter struct {
	root string
}

// toNative prefixes the logical path with the root name when one is set.
func (r rooter) toNative(logical string) string {
	if r.root == "" {
		return logical
	}
	return path.Join(r.root, logical)
}

// toLogical strips the root-name prefix from a native path.
func (r rooter) toLogical(native string) string {
	if r.root == "" {
		return native
	}
	if native == r.root {
		return ""
	}
	return strings.TrimPrefix(native, r.root+"/")
}
