package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	pair := GeneratePKCE()

	if len(pair.Verifier) != 43 {
		t.Errorf("Expected 43-char verifier, got %d", len(pair.Verifier))
	}

	sum := sha256.Sum256([]byte(pair.Verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if pair.Challenge != want {
		t.Errorf("Got challenge %s, want %s", pair.Challenge, want)
	}
}

func TestGeneratePKCEUnrelatedCalls(t *testing.T) {
	a := GeneratePKCE()
	b := GeneratePKCE()

	if a.Verifier == b.Verifier {
		t.Error("Expected fresh verifier per call")
	}
	if a.Challenge == b.Challenge {
		t.Error("Expected fresh challenge per call")
	}
}
