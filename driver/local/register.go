package local

import "github.com/gobeaver/bundlekit"

func init() {
	bundlekit.RegisterBackend(bundlekit.StructureDirectory, func(cfg *bundlekit.Config, path string, mode bundlekit.Mode) (bundlekit.Backend, error) {
		return New(cfg, path, mode)
	})
}
