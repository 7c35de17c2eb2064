package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoAdminPassword    = errors.New("admin password is not configured")
	ErrPasswordTooLong    = fmt.Errorf("admin password exceeds %d bytes", MaxPasswordBytes)
)

// PasswordVerifier checks login attempts against the single admin password.
// Only the bcrypt hash is kept in memory.
type PasswordVerifier struct {
	hash []byte
}

// NewPasswordVerifier prefers a precomputed bcrypt hash and otherwise hashes
// the plaintext password once at startup.
func NewPasswordVerifier(plain, hash string) (*PasswordVerifier, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		return &PasswordVerifier{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, ErrNoAdminPassword
	}
	if len(plain) > MaxPasswordBytes {
		return nil, fmt.Errorf("%w (got %d)", ErrPasswordTooLong, len(plain))
	}

	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &PasswordVerifier{hash: h}, nil
}

// Verify rejects input longer than MaxPasswordBytes outright, since bcrypt
// would only compare its prefix.
func (v *PasswordVerifier) Verify(password string) error {
	if len(password) > MaxPasswordBytes {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
