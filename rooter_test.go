package bundlekit

import "testing"

func TestRooterToNative(t *testing.T) {
	t.Run("no root passes paths through", func(t *testing.T) {
		r := rooter{}
		if got := r.toNative("glyphs/A_.glif"); got != "glyphs/A_.glif" {
			t.Errorf("toNative = %q, want %q", got, "glyphs/A_.glif")
		}
	})

	t.Run("root is prefixed", func(t *testing.T) {
		r := rooter{root: "contents"}
		if got := r.toNative("glyphs/A_.glif"); got != "contents/glyphs/A_.glif" {
			t.Errorf("toNative = %q, want %q", got, "contents/glyphs/A_.glif")
		}
	})

	t.Run("empty path maps to the root itself", func(t *testing.T) {
		r := rooter{root: "contents"}
		if got := r.toNative(""); got != "contents" {
			t.Errorf("toNative = %q, want %q", got, "contents")
		}
	})
}

func TestRooterToLogical(t *testing.T) {
	t.Run("no root passes paths through", func(t *testing.T) {
		r := rooter{}
		if got := r.toLogical("glyphs/A_.glif"); got != "glyphs/A_.glif" {
			t.Errorf("toLogical = %q, want %q", got, "glyphs/A_.glif")
		}
	})

	t.Run("root prefix is stripped", func(t *testing.T) {
		r := rooter{root: "contents"}
		if got := r.toLogical("contents/glyphs/A_.glif"); got != "glyphs/A_.glif" {
			t.Errorf("toLogical = %q, want %q", got, "glyphs/A_.glif")
		}
	})

	t.Run("root itself maps to the empty path", func(t *testing.T) {
		r := rooter{root: "contents"}
		if got := r.toLogical("contents"); got != "" {
			t.Errorf("toLogical = %q, want empty", got)
		}
	})
}

func TestRooterRoundTrip(t *testing.T) {
	r := rooter{root: "My.ufo"}
	paths := []string{"", "metainfo.plist", "glyphs/A_.glif", "a/b/c"}
	for _, p := range paths {
		if got := r.toLogical(r.toNative(p)); got != p {
			t.Errorf("round trip of %q = %q", p, got)
		}
	}
}
