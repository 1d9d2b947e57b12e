package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use markers. Access and refresh tokens share a signing key, so the
// marker is what keeps one from being accepted as the other.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// AccessClaims are carried by access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims

	Use   string `json:"token_use"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Validate is called by the parser after the registered claims check out.
func (c AccessClaims) Validate() error {
	if c.Use != UseAccess || c.Role == "" {
		return ErrTokenUse
	}
	if c.Subject == "" {
		return ErrInvalidClaim
	}
	return nil
}

// RefreshClaims are carried by refresh tokens. RefreshTokenID is the
// rotation identifier tracked by the refresh ledger.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Use            string `json:"token_use"`
	RefreshTokenID string `json:"rti"`
}

func (c RefreshClaims) Validate() error {
	if c.Use != UseRefresh || c.RefreshTokenID == "" {
		return ErrTokenUse
	}
	if c.Subject == "" {
		return ErrInvalidClaim
	}
	return nil
}

// NewAccessClaims builds access claims valid from now for ttl.
func NewAccessClaims(subject, email, role, issuer, audience string, ttl time.Duration, now time.Time) AccessClaims {
	return AccessClaims{
		RegisteredClaims: registered(subject, issuer, audience, ttl, now),
		Use:              UseAccess,
		Email:            email,
		Role:             role,
	}
}

// NewRefreshClaims builds refresh claims valid from now for ttl.
func NewRefreshClaims(subject, refreshTokenID, issuer, audience string, ttl time.Duration, now time.Time) RefreshClaims {
	return RefreshClaims{
		RegisteredClaims: registered(subject, issuer, audience, ttl, now),
		Use:              UseRefresh,
		RefreshTokenID:   refreshTokenID,
	}
}

func registered(subject, issuer, audience string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
	if audience != "" {
		rc.Audience = jwt.ClaimStrings{audience}
	}
	return rc
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
