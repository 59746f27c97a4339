// Package auth drives the interactive Microsoft login: PKCE material, the
// embedded-browser code acquisition, and the error taxonomy shared with the
// federation chain.
package auth

import (
	"golang.org/x/oauth2"
)

// PKCEPair is a code verifier and its S256 challenge for one authorization
// attempt. The verifier stays local; only the challenge travels in the
// authorize URL.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE returns a fresh pair: 32 bytes from a CSPRNG, base64url
// encoded without padding (43 chars), challenge = base64url(sha256(verifier)).
// Every call re-randomizes from scratch.
func GeneratePKCE() PKCEPair {
	v := oauth2.GenerateVerifier()
	return PKCEPair{Verifier: v, Challenge: oauth2.S256ChallengeFromVerifier(v)}
}
