package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretSize is the shortest secret NewHS256 accepts (RFC 7518 §3.2).
const MinHS256SecretSize = 32

var ErrWeakSecret = errors.New("jwtx: HS256 secret shorter than 32 bytes")

// HS256 signs and verifies access and refresh tokens with one shared secret.
// Issuer and audience are fixed at construction and enforced on every parse.
type HS256 struct {
	secret   []byte
	issuer   string
	audience string

	// Leeway tolerates small clock skew on exp/nbf/iat.
	Leeway time.Duration

	// Now is the verification clock; tests pin it. Defaults to time.Now.
	Now func() time.Time
}

func NewHS256(secret []byte, issuer, audience string) (*HS256, error) {
	if len(secret) < MinHS256SecretSize {
		return nil, ErrWeakSecret
	}
	return &HS256{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		Now:      time.Now,
	}, nil
}

func (h *HS256) Issuer() string   { return h.issuer }
func (h *HS256) Audience() string { return h.audience }

// Sign serialises claims into a compact JWS.
func (h *HS256) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

// ParseAccess verifies an access token. A refresh token fails with ErrTokenUse.
func (h *HS256) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := h.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token. An access token fails with ErrTokenUse.
func (h *HS256) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := h.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (h *HS256) parse(token string, claims jwt.Claims) error {
	now := h.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(h.Leeway),
		jwt.WithTimeFunc(now),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}
	if h.audience != "" {
		opts = append(opts, jwt.WithAudience(h.audience))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	return mapParseError(err)
}
