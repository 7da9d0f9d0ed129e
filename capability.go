package bundlekit

import (
	"sync"
)

// BackendFactory creates a Backend for a bundle at the given native
// filesystem path. In write mode the factory must create the physical
// store when it does not exist yet.
type BackendFactory func(cfg *Config, path string, mode Mode) (Backend, error)

// Capabilities describes which bundle structures can be constructed and
// how. A Capabilities value is consulted once, at bundle construction; the
// zero value supports nothing. Pass a custom value via WithCapabilities to
// restrict or replace the registered backends.
type Capabilities struct {
	mu        sync.RWMutex
	factories map[Structure]BackendFactory
}

// NewCapabilities returns an empty capability set.
func NewCapabilities() *Capabilities {
	return &Capabilities{factories: make(map[Structure]BackendFactory)}
}

// Register adds a backend factory for the given structure, replacing any
// previous registration.
func (c *Capabilities) Register(structure Structure, factory BackendFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.factories == nil {
		c.factories = make(map[Structure]BackendFactory)
	}
	c.factories[structure] = factory
}

// Supports reports whether a backend is available for the structure.
func (c *Capabilities) Supports(structure Structure) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[structure]
	return ok
}

// New constructs a backend for the structure, failing with
// ErrCapabilityUnavailable when no factory is registered for it. This is
// an explicit feature check: a missing archive codec fails fast here
// instead of degrading to a no-op backend.
func (c *Capabilities) New(structure Structure, cfg *Config, path string, mode Mode) (Backend, error) {
	c.mu.RLock()
	factory, ok := c.factories[structure]
	c.mu.RUnlock()

	if !ok {
		return nil, NewPathError("open", path, ErrCapabilityUnavailable)
	}
	return factory(cfg, path, mode)
}

var defaultCapabilities = NewCapabilities()

// RegisterBackend registers a backend factory in the default capability
// set. Drivers call this from their init functions; importing a driver
// package is what makes its structure constructible:
//
//	import (
//	    _ "github.com/gobeaver/bundlekit/driver/local"
//	    _ "github.com/gobeaver/bundlekit/driver/zip"
//	)
func RegisterBackend(structure Structure, factory BackendFactory) {
	defaultCapabilities.Register(structure, factory)
}

// DefaultCapabilities returns the capability set populated by driver
// registration.
func DefaultCapabilities() *Capabilities {
	return defaultCapabilities
}
