package hash

import (
	"errors"
	"testing"
)

func TestNewHMACSHA256_EmptySecret(t *testing.T) {
	if _, err := NewHMACSHA256(nil); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestHMACSHA256_HashAndVerify(t *testing.T) {
	h, err := NewHMACSHA256([]byte("server-secret"))
	if err != nil {
		t.Fatalf("NewHMACSHA256() error = %v", err)
	}

	digest, err := h.Hash("482913")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if len(digest) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digest))
	}
	if string(digest) == "482913" {
		t.Fatalf("digest must not equal plaintext")
	}

	if !h.Verify(string(digest), "482913") {
		t.Fatalf("Verify() rejected the correct code")
	}
	if h.Verify(string(digest), "482914") {
		t.Fatalf("Verify() accepted a wrong code")
	}
	if h.Verify(string(digest[:10]), "482913") {
		t.Fatalf("Verify() accepted a truncated digest")
	}

	other, _ := NewHMACSHA256([]byte("other-secret"))
	if other.Verify(string(digest), "482913") {
		t.Fatalf("digest must depend on the secret")
	}
}

func BenchmarkHMACSHA256_Verify(b *testing.B) {
	h, _ := NewHMACSHA256([]byte("bench-secret"))
	digest, _ := h.Hash("A1B2C3")

	b.Run("match", func(b *testing.B) {
		for b.Loop() {
			h.Verify(string(digest), "A1B2C3")
		}
	})
	b.Run("first-char-mismatch", func(b *testing.B) {
		for b.Loop() {
			h.Verify(string(digest), "Z1B2C3")
		}
	})
}
