package bundlekit

import (
	"errors"
	"fmt"
)

// Common bundle errors
var (
	ErrUnknownStructure      = errors.New("unknown bundle structure")
	ErrStructureMismatch     = errors.New("a bundle with a different structure already exists")
	ErrCapabilityUnavailable = errors.New("no backend available for structure")
	ErrMultipleRoots         = errors.New("archive contains more than one root")
	ErrNotExist              = errors.New("file does not exist")
	ErrExist                 = errors.New("file already exists")
	ErrIsDir                 = errors.New("is a directory")
	ErrNotDir                = errors.New("not a directory")
	ErrRecursionLimit        = errors.New("maximum recursion depth reached")
	ErrCorrupt               = errors.New("file could not be read")
	ErrMalformed             = errors.New("value could not be encoded")
	ErrNotAllowed            = errors.New("operation not allowed")
	ErrClosed                = errors.New("bundle already closed")
)

// PathError records an error and the operation and bundle path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError wraps err with the operation and path that caused it
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsCorrupt reports whether an error indicates that a property list could
// not be decoded
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// IsMalformed reports whether an error indicates that a value could not be
// encoded as a property list
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
