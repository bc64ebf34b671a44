package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptPasswordHasher hashes credentials with bcrypt. bcrypt embeds a
// random salt per digest and CompareHashAndPassword is constant-time, so a
// malformed or foreign digest fails closed with an error.
type BcryptPasswordHasher struct {
	Cost int
}

// NewBcryptPasswordHasher creates a hasher. Cost <= 0 falls back to
// bcrypt.DefaultCost.
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{Cost: cost}
}

// Hash generates a salted bcrypt digest for the given password.
func (h *BcryptPasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash generation failed: %w", err)
	}
	return string(digest), nil
}

// Verify compares a bcrypt digest with a plaintext candidate. Returns nil on
// match, bcrypt.ErrMismatchedHashAndPassword (or a format error) otherwise.
func (h *BcryptPasswordHasher) Verify(digest, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
}
