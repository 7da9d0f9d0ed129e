package bundlekit

import "testing"

func TestCallbackChangeToken(t *testing.T) {
	t.Run("signals once", func(t *testing.T) {
		token := NewCallbackChangeToken()
		if token.HasChanged() {
			t.Error("new token reports changed")
		}

		calls := 0
		token.RegisterChangeCallback(func() { calls++ })

		token.SignalChange()
		token.SignalChange()

		if !token.HasChanged() {
			t.Error("token does not report change after signal")
		}
		if calls != 1 {
			t.Errorf("callback invoked %d times, want 1", calls)
		}
	})

	t.Run("unregister prevents callback", func(t *testing.T) {
		token := NewCallbackChangeToken()

		calls := 0
		unregister := token.RegisterChangeCallback(func() { calls++ })
		unregister()

		token.SignalChange()
		if calls != 0 {
			t.Errorf("callback invoked %d times after unregister", calls)
		}
	})
}

func TestNeverChangeToken(t *testing.T) {
	token := NeverChangeToken{}
	if token.HasChanged() {
		t.Error("NeverChangeToken reports changed")
	}
	if token.ActiveChangeCallbacks() {
		t.Error("NeverChangeToken claims active callbacks")
	}
	unregister := token.RegisterChangeCallback(func() {})
	unregister()
}
