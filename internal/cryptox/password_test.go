package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

func TestHash_MatchesOwnPlaintext(t *testing.T) {
	h := newTestHasher()

	for _, p := range []string{"secret1", "пароль", strings.Repeat("x", 200), " spaced "} {
		v, err := h.Hash(p)
		require.NoError(t, err)
		assert.True(t, h.Matches(p, v), "plaintext %q must match its verifier", p)
	}
}

func TestHash_RejectsOtherPlaintexts(t *testing.T) {
	h := newTestHasher()

	v, err := h.Hash("secret1")
	require.NoError(t, err)

	for _, p := range []string{"secret2", "Secret1", "secret1 ", "", "wrong"} {
		assert.False(t, h.Matches(p, v), "plaintext %q must not match", p)
	}
}

func TestHash_LongInputsDoNotCollideAtBcryptLimit(t *testing.T) {
	h := newTestHasher()

	// bcrypt alone ignores everything past 72 bytes.
	base := strings.Repeat("a", 80)
	v, err := h.Hash(base + "1")
	require.NoError(t, err)
	assert.False(t, h.Matches(base+"2", v))
}

func TestHash_IsSalted(t *testing.T) {
	h := newTestHasher()

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two hashes of the same plaintext must differ by salt")
	assert.NotContains(t, a, Digest("same"), "the digest must not be stored")
}

func TestHash_Empty(t *testing.T) {
	_, err := newTestHasher().Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestMatches_GarbageVerifier(t *testing.T) {
	h := newTestHasher()
	assert.False(t, h.Matches("secret", ""))
	assert.False(t, h.Matches("secret", "not-a-bcrypt-hash"))
}

func TestDigest(t *testing.T) {
	d := Digest("abc")
	assert.Len(t, d, 64)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
