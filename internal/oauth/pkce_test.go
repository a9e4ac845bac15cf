package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifier_URLSafeUnpadded(t *testing.T) {
	for _, length := range []int{MinVerifierLength, 64, 100, MaxVerifierLength} {
		verifier, err := GenerateVerifier(length)
		require.NoError(t, err)
		assert.NotContains(t, verifier, "+")
		assert.NotContains(t, verifier, "/")
		assert.NotContains(t, verifier, "=")
		// length bytes encode to ceil(length*4/3) characters without padding
		assert.Equal(t, base64.RawURLEncoding.EncodedLen(length), len(verifier))
	}
}

func TestGenerateVerifier_ClampsLength(t *testing.T) {
	short, err := GenerateVerifier(1)
	require.NoError(t, err)
	assert.Equal(t, base64.RawURLEncoding.EncodedLen(MinVerifierLength), len(short))

	long, err := GenerateVerifier(10_000)
	require.NoError(t, err)
	assert.Equal(t, base64.RawURLEncoding.EncodedLen(MaxVerifierLength), len(long))

	def, err := GenerateVerifier(0)
	require.NoError(t, err)
	assert.Equal(t, base64.RawURLEncoding.EncodedLen(DefaultVerifierLength), len(def))
}

func TestDeriveChallenge_MatchesIndependentComputation(t *testing.T) {
	for length := MinVerifierLength; length <= MaxVerifierLength; length += 5 {
		verifier, err := GenerateVerifier(length)
		require.NoError(t, err)

		digest := sha256.Sum256([]byte(verifier))
		want := base64.RawURLEncoding.EncodeToString(digest[:])

		assert.Equal(t, want, DeriveChallenge(verifier))
		// Deterministic: same verifier, same challenge.
		assert.Equal(t, DeriveChallenge(verifier), DeriveChallenge(verifier))
	}
}

func TestGeneratePair(t *testing.T) {
	a, err := GeneratePair(DefaultVerifierLength)
	require.NoError(t, err)
	b, err := GeneratePair(DefaultVerifierLength)
	require.NoError(t, err)

	assert.Equal(t, DeriveChallenge(a.Verifier), a.Challenge)
	assert.NotEqual(t, a.Verifier, b.Verifier)
	assert.NotEqual(t, a.Challenge, b.Challenge)

	for _, s := range []string{a.Verifier, a.Challenge} {
		assert.False(t, strings.ContainsAny(s, "+/="), "expected URL-safe unpadded encoding: %q", s)
	}
}
