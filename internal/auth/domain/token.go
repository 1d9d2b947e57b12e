package domain

import "time"

// TokenPair is what sign-in, refresh and external sign-in hand back.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshToken is the ledger row for the SQL-store backend: the single
// currently valid refresh-token-id for a user.
type RefreshToken struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}
