package bundlekit

import (
	"strings"
	"testing"
)

func TestCalculateChecksum(t *testing.T) {
	t.Run("known digests", func(t *testing.T) {
		cases := []struct {
			algorithm ChecksumAlgorithm
			want      string
		}{
			{ChecksumMD5, "5d41402abc4b2a76b9719d911017c592"},
			{ChecksumSHA1, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
			{ChecksumSHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
			{ChecksumCRC32, "3610a686"},
		}
		for _, tc := range cases {
			got, err := CalculateChecksum(strings.NewReader("hello"), tc.algorithm)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.algorithm, err)
			}
			if got != tc.want {
				t.Errorf("%s = %q, want %q", tc.algorithm, got, tc.want)
			}
		}
	})

	t.Run("xxhash is deterministic and content sensitive", func(t *testing.T) {
		a, err := CalculateChecksum(strings.NewReader("hello"), ChecksumXXHash)
		if err != nil {
			t.Fatal(err)
		}
		b, err := CalculateChecksum(strings.NewReader("hello"), ChecksumXXHash)
		if err != nil {
			t.Fatal(err)
		}
		c, err := CalculateChecksum(strings.NewReader("world"), ChecksumXXHash)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("same content hashed differently: %q vs %q", a, b)
		}
		if a == c {
			t.Errorf("different content hashed identically: %q", a)
		}
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		if _, err := CalculateChecksum(strings.NewReader("x"), "whirlpool"); err == nil {
			t.Error("expected error for unsupported algorithm")
		}
	})
}

func TestCalculateChecksums(t *testing.T) {
	algorithms := []ChecksumAlgorithm{ChecksumMD5, ChecksumSHA256, ChecksumXXHash}

	sums, err := CalculateChecksums(strings.NewReader("hello"), algorithms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sums) != len(algorithms) {
		t.Fatalf("got %d checksums, want %d", len(sums), len(algorithms))
	}

	// The single-pass result must match the single-algorithm path.
	for _, algo := range algorithms {
		want, err := CalculateChecksum(strings.NewReader("hello"), algo)
		if err != nil {
			t.Fatal(err)
		}
		if sums[algo] != want {
			t.Errorf("%s = %q, want %q", algo, sums[algo], want)
		}
	}
}
