package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestSealRoundTrip(t *testing.T) {
	s, err := New(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	plain := []byte(`{"name":"Jürgen Müller"}`)
	sealed, err := s.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("Müller")) {
		t.Fatal("sealed data contains plaintext")
	}
	opened, err := s.Decrypt(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("round trip mismatch: %s", opened)
	}
}

func TestPassphraseIsDerived(t *testing.T) {
	s, err := New("correct horse battery staple")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !s.Configured() {
		t.Fatal("expected derived key")
	}
	if _, err := New("short"); err == nil {
		t.Fatal("expected short key to be rejected")
	}
}

func TestUnsealedDataPassesThrough(t *testing.T) {
	s, _ := New(strings.Repeat("ab", 32))
	legacy := []byte(`{"name":"plain"}`)
	out, err := s.Decrypt(legacy)
	if err != nil || !bytes.Equal(out, legacy) {
		t.Fatalf("expected legacy passthrough, got %s %v", out, err)
	}

	empty, _ := New("")
	sealed, _ := s.Encrypt(legacy)
	if _, err := empty.Decrypt(sealed); err == nil {
		t.Fatal("expected error opening sealed data without a key")
	}
}
