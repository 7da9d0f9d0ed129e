package bundlekit

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// ChangeToken Implementations
// ============================================================================

// CallbackChangeToken is a ChangeToken that supports active callbacks.
// Used by backends that have native file system events.
type CallbackChangeToken struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
}

// NewCallbackChangeToken creates a new ChangeToken that supports active callbacks.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	t.mu.Lock()
	t.callbacks = append(t.callbacks, callback)
	index := len(t.callbacks) - 1
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if index < len(t.callbacks) {
			// Set to nil instead of removing to avoid index shifting
			t.callbacks[index] = nil
		}
	}
}

// SignalChange marks the token as changed and invokes all callbacks.
// This should be called by the backend when a change is detected.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return // Already changed
	}

	t.mu.RLock()
	callbacks := make([]func(), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// NeverChangeToken is a ChangeToken that never signals a change. Archive
// bundles return it from Watch: their contents only change through the
// handle itself, never externally.
type NeverChangeToken struct{}

func (NeverChangeToken) HasChanged() bool            { return false }
func (NeverChangeToken) ActiveChangeCallbacks() bool { return false }
func (NeverChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return func() {}
}

var (
	_ ChangeToken = (*CallbackChangeToken)(nil)
	_ ChangeToken = NeverChangeToken{}
)
