package models

import "time"

// Account represents a registered identity with its credential hash and the
// failure-tracking fields mutated by the login flow.
type Account struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	Role           string // e.g., "user", "admin"
	FailedAttempts int
	LastFailedAt   *time.Time
	SuspendedUntil *time.Time // non-nil only while the account is under lockout
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Suspended reports whether the account is under an active lockout at the
// given instant. Expiry is evaluated lazily; the stored fields are only
// cleared on the next successful login.
func (a *Account) Suspended(now time.Time) bool {
	return a.SuspendedUntil != nil && a.SuspendedUntil.After(now)
}

// PublicProfile is the public-safe projection of an account returned on
// successful login.
type PublicProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

// Profile builds the public projection, defaulting the role for accounts
// created before roles existed.
func (a *Account) Profile() *PublicProfile {
	role := a.Role
	if role == "" {
		role = "user"
	}
	return &PublicProfile{
		ID:    a.ID,
		Email: a.Email,
		Role:  role,
		Name:  a.Name,
	}
}
