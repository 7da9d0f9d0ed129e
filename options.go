package bundlekit

// Mode is the access mode a bundle handle is opened with.
type Mode int

const (
	// ModeRead opens an existing bundle for reading only.
	ModeRead Mode = iota
	// ModeWrite opens or creates a bundle for reading and writing.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Option represents a configuration option for Open
type Option func(*Options)

// Options contains all possible options for opening a bundle
type Options struct {
	// Structure requests a physical structure explicitly. Consulted only
	// in write mode: it selects the structure of a newly created bundle,
	// or is validated against the structure of an existing one.
	Structure Structure

	// Config overrides the bundle configuration. Nil means DefaultConfig.
	Config *Config

	// Capabilities overrides the backend capability set. Nil means the
	// set populated by driver registration.
	Capabilities *Capabilities

	// Codec overrides the property-list codec. Nil means the XML plist
	// codec.
	Codec Codec

	// Backend supplies a pre-constructed backend, bypassing structure
	// sniffing and backend selection. The bundle takes ownership and
	// closes it.
	Backend Backend
}

// WithStructure requests an explicit physical structure for a write-mode
// open.
func WithStructure(s Structure) Option {
	return func(o *Options) {
		o.Structure = s
	}
}

// WithConfig sets the bundle configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithCapabilities sets the backend capability set consulted at
// construction.
func WithCapabilities(caps *Capabilities) Option {
	return func(o *Options) {
		o.Capabilities = caps
	}
}

// WithCodec sets the property-list codec used by ReadPlist and WritePlist.
func WithCodec(c Codec) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithBackend supplies a pre-constructed backend for the bundle.
func WithBackend(b Backend) Option {
	return func(o *Options) {
		o.Backend = b
	}
}

func processOptions(options ...Option) *Options {
	opts := &Options{}
	for _, option := range options {
		option(opts)
	}
	return opts
}
