package domain

import "time"

type User struct {
	ID           int64
	Email        string
	PasswordHash string // empty for users that only sign in through an external provider
	Role         Role
	GoogleID     string
	TFAEnabled   bool
	TFASecret    string // base32; sealed at rest when a secret key is configured

	// TFAPendingSecret is an enrollment awaiting its first confirmed code.
	TFAPendingSecret string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ExternalOnly reports whether the user has no local password.
func (u User) ExternalOnly() bool {
	return u.PasswordHash == ""
}

// Identity returns the principal tokens are minted for.
func (u User) Identity() Identity {
	return Identity{Subject: u.ID, Email: u.Email, Role: u.Role}
}

// UserUpdate carries the mutable user fields. Nil fields are left unchanged.
type UserUpdate struct {
	Email *string
	Role  *Role
}
