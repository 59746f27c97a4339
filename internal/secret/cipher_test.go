package secret

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c := New("test-passphrase")

	cases := []string{
		"",
		"hello",
		"eyJhbGciOiJSUzI1NiJ9.token.payload",
		"exactly16bytes!!",
		"ünïcødé → tokens",
		strings.Repeat("x", 1000),
	}

	for _, want := range cases {
		enc, err := c.Encrypt(want)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", want, err)
		}
		got, ok := c.Decrypt(enc)
		if !ok {
			t.Fatalf("Decrypt of Encrypt(%q) not recoverable", want)
		}
		if got != want {
			t.Errorf("Roundtrip: got %q, want %q", got, want)
		}
	}
}

func TestEncryptFormat(t *testing.T) {
	c := New("test-passphrase")

	enc, err := c.Encrypt("secret-token")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	ivHex, dataHex, found := strings.Cut(enc, ":")
	if !found {
		t.Fatalf("Expected iv:cipher format, got %q", enc)
	}
	if len(ivHex) != 32 {
		t.Errorf("Expected 16-byte hex IV (32 chars), got %d", len(ivHex))
	}
	if _, err := hex.DecodeString(ivHex); err != nil {
		t.Errorf("IV is not hex: %v", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		t.Errorf("Ciphertext is not hex: %v", err)
	}
	if len(data)%16 != 0 {
		t.Errorf("Ciphertext not block-aligned: %d bytes", len(data))
	}
	if strings.Contains(enc, "secret-token") {
		t.Error("Ciphertext contains plaintext")
	}

	// Fresh IV every call, so two encryptions of the same input differ
	enc2, _ := c.Encrypt("secret-token")
	if enc == enc2 {
		t.Error("Expected distinct ciphertexts for repeated encryption")
	}
}

func TestDecryptGarbage(t *testing.T) {
	c := New("test-passphrase")

	valid, _ := c.Encrypt("token")

	inputs := []string{
		"",
		"garbage",
		"deadbeef",                       // no delimiter
		"zz:zz",                          // not hex
		"deadbeef:" + strings.Repeat("ab", 16), // IV too short
		strings.Repeat("ab", 16) + ":",         // empty ciphertext
		strings.Repeat("ab", 16) + ":abcdef",   // not block-aligned
		valid[:len(valid)-1],                   // truncated hex
	}

	for _, in := range inputs {
		got, ok := c.Decrypt(in)
		if ok {
			t.Errorf("Decrypt(%q) unexpectedly succeeded with %q", in, got)
		}
		if got != "" {
			t.Errorf("Decrypt(%q) returned %q on failure, want empty", in, got)
		}
	}
}
