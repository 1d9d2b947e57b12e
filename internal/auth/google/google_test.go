package google_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/google"
	"github.com/aussiebroadwan/iamcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type idClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func TestVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddJWK(jwtx.NewRSAJWK("g1", "sig", "RS256", &key.PublicKey)))

	v, err := google.NewVerifier("client-1.apps.googleusercontent.com", keys)
	require.NoError(t, err)

	sign := func(mut func(*idClaims)) string {
		c := idClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "https://accounts.google.com",
				Subject:   "1098765",
				Audience:  jwt.ClaimStrings{"client-1.apps.googleusercontent.com"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Email:         "Ann@Example.com",
			EmailVerified: true,
		}
		if mut != nil {
			mut(&c)
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
		tok.Header["kid"] = "g1"
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		id, err := v.Verify(ctx, sign(nil))
		require.NoError(t, err)
		require.Equal(t, "1098765", id.Subject)
		require.Equal(t, "ann@example.com", id.Email)
	})

	t.Run("bare issuer accepted", func(t *testing.T) {
		_, err := v.Verify(ctx, sign(func(c *idClaims) { c.Issuer = "accounts.google.com" }))
		require.NoError(t, err)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		_, err := v.Verify(ctx, sign(func(c *idClaims) { c.Issuer = "https://evil.example" }))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("other audience", func(t *testing.T) {
		_, err := v.Verify(ctx, sign(func(c *idClaims) { c.Audience = jwt.ClaimStrings{"someone-else"} }))
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("unverified email", func(t *testing.T) {
		_, err := v.Verify(ctx, sign(func(c *idClaims) { c.EmailVerified = false }))
		require.ErrorIs(t, err, google.ErrEmailNotVerified)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Verify(ctx, sign(func(c *idClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		}))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}

func TestNewVerifierRequiresClientID(t *testing.T) {
	_, err := google.NewVerifier("", jwtx.NewKeySet())
	require.ErrorIs(t, err, google.ErrNoClientID)
}
