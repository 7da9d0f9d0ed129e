package zip

import "github.com/gobeaver/bundlekit"

func init() {
	bundlekit.RegisterBackend(bundlekit.StructureArchive, func(cfg *bundlekit.Config, path string, mode bundlekit.Mode) (bundlekit.Backend, error) {
		return New(cfg, path, mode)
	})
}
