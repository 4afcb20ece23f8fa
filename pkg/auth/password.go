package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

// ErrCredentialMismatch reports that the supplied password does not match the
// stored hash. Any other comparison failure is a verifier fault and must be
// surfaced as an internal error, not a rejection.
var ErrCredentialMismatch = errors.New("credential mismatch")

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// BcryptVerifier adapts VerifyPassword to the verifier interface consumed
// by the login flow.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(hashedPassword, password string) error {
	return VerifyPassword(hashedPassword, password)
}

// VerifyPassword compares a bcrypt hash against a candidate password.
// Returns ErrCredentialMismatch on a clean mismatch.
func VerifyPassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrCredentialMismatch
	}
	return fmt.Errorf("failed to compare password: %w", err)
}
