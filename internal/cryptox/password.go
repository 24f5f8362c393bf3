// Package cryptox holds the credential hashing used for stored profiles.
//
// Verifiers are produced in two stages: the plaintext is first reduced to a
// fixed-length SHA-256 hex digest, then the digest is hashed with bcrypt.
// The digest keeps the bcrypt input at 64 ASCII bytes whatever the
// plaintext's length or encoding; bcrypt supplies the salt and the work
// factor. Only the bcrypt output is stored.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned by Hash for an empty plaintext.
var ErrEmptyPassword = errors.New("password is empty")

// PasswordHasher turns plaintext credentials into stored verifiers and
// checks candidates against them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(plain, verifier string) bool
}

// BcryptHasher implements PasswordHasher with digest-then-bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given bcrypt cost. Out-of-range
// costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt verifier of the plaintext's digest.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	verifier, err := bcrypt.GenerateFromPassword([]byte(Digest(plain)), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(verifier), nil
}

// Matches reports whether plain corresponds to verifier. The comparison is
// bcrypt's own constant-time check.
func (h *BcryptHasher) Matches(plain, verifier string) bool {
	if verifier == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(Digest(plain))) == nil
}

// Digest is the deterministic first stage: lowercase hex SHA-256.
func Digest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
