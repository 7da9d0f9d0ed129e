package bundlekit

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Structure used when a write-mode open creates a new bundle and the
	// caller did not request one explicitly (directory, archive)
	Structure string `env:"BUNDLEKIT_STRUCTURE,default:directory"`

	// Permission modes for files and directories created by the directory
	// backend, as octal strings
	FileMode string `env:"BUNDLEKIT_FILE_MODE,default:0644"`
	DirMode  string `env:"BUNDLEKIT_DIR_MODE,default:0755"`

	// Compression method for entries written to archive bundles
	// (store, deflate)
	ZipCompression string `env:"BUNDLEKIT_ZIP_COMPRESSION,default:deflate"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the static defaults without consulting the
// environment.
func DefaultConfig() *Config {
	return &Config{
		Structure:      string(StructureDirectory),
		FileMode:       "0644",
		DirMode:        "0755",
		ZipCompression: "deflate",
	}
}

// FilePerm returns the configured file permission mode.
func (c *Config) FilePerm() (os.FileMode, error) {
	return parsePerm(c.FileMode, 0644)
}

// DirPerm returns the configured directory permission mode.
func (c *Config) DirPerm() (os.FileMode, error) {
	return parsePerm(c.DirMode, 0755)
}

func parsePerm(s string, fallback os.FileMode) (os.FileMode, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permission mode %q: %w", s, err)
	}
	return os.FileMode(n), nil
}
