// Package oauth implements the authorization-code flow building blocks:
// PKCE generation (RFC 7636), the opaque state envelope that survives the
// provider redirect, and the token-endpoint exchange.
package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Verifier length bounds from RFC 7636. Microsoft Entra requires PKCE for
// cross-origin authorization-code redemption, so every OAuth provider here
// generates a pair.
const (
	MinVerifierLength     = 43
	MaxVerifierLength     = 128
	DefaultVerifierLength = 128
)

// PKCEPair is a verifier/challenge pair for a single authorization attempt.
// It is never persisted server-side; the verifier travels inside the state
// parameter and comes back with the callback.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GenerateVerifier produces length bytes of cryptographically secure
// randomness encoded as unpadded URL-safe base64. Lengths outside
// [MinVerifierLength, MaxVerifierLength] are clamped; length <= 0 selects
// the default.
func GenerateVerifier(length int) (string, error) {
	if length <= 0 {
		length = DefaultVerifierLength
	}
	if length < MinVerifierLength {
		length = MinVerifierLength
	}
	if length > MaxVerifierLength {
		length = MaxVerifierLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DeriveChallenge computes the S256 code challenge for a verifier:
// SHA-256 over the verifier's bytes, unpadded URL-safe base64.
// Deterministic by construction.
func DeriveChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// GeneratePair is the entry point callers use: a fresh verifier and its
// derived challenge. The only error path is randomness-source failure.
func GeneratePair(length int) (PKCEPair, error) {
	verifier, err := GenerateVerifier(length)
	if err != nil {
		return PKCEPair{}, err
	}
	return PKCEPair{
		Verifier:  verifier,
		Challenge: DeriveChallenge(verifier),
	}, nil
}
