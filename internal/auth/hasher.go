// Package auth provides the credential hasher used at account
// create/update time.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"datashelf/internal/domain"
)

var _ domain.CredentialHasher = (*BcryptHasher)(nil)

// BcryptHasher implements domain.CredentialHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost; cost <= 0 uses
// the bcrypt default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plain matches hash.
func (h *BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
