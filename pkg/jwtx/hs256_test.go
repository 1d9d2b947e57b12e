package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/iamcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("k", 32))

func newHS256(t *testing.T) *jwtx.HS256 {
	t.Helper()
	h, err := jwtx.NewHS256(testSecret, "iam", "api")
	require.NoError(t, err)
	return h
}

func TestNewHS256RejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256([]byte("short"), "iam", "api")
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHS256RoundTrip(t *testing.T) {
	t.Parallel()
	h := newHS256(t)
	now := time.Now()

	access, err := h.Sign(jwtx.NewAccessClaims("7", "u@x.io", "ADMIN", "iam", "api", time.Minute, now))
	require.NoError(t, err)

	ac, err := h.ParseAccess(access)
	require.NoError(t, err)
	require.Equal(t, "7", ac.Subject)
	require.Equal(t, "ADMIN", ac.Role)
	require.Equal(t, "u@x.io", ac.Email)

	refresh, err := h.Sign(jwtx.NewRefreshClaims("7", "rti-abc", "iam", "api", time.Hour, now))
	require.NoError(t, err)

	rc, err := h.ParseRefresh(refresh)
	require.NoError(t, err)
	require.Equal(t, "rti-abc", rc.RefreshTokenID)
}

func TestHS256Rejects(t *testing.T) {
	t.Parallel()
	h := newHS256(t)
	now := time.Now()

	access, err := h.Sign(jwtx.NewAccessClaims("7", "u@x.io", "STANDARD", "iam", "api", time.Minute, now))
	require.NoError(t, err)
	refresh, err := h.Sign(jwtx.NewRefreshClaims("7", "rti", "iam", "api", time.Hour, now))
	require.NoError(t, err)

	t.Run("access used as refresh", func(t *testing.T) {
		_, err := h.ParseRefresh(access)
		require.ErrorIs(t, err, jwtx.ErrTokenUse)
	})

	t.Run("refresh used as access", func(t *testing.T) {
		_, err := h.ParseAccess(refresh)
		require.ErrorIs(t, err, jwtx.ErrTokenUse)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := jwtx.NewHS256([]byte(strings.Repeat("z", 32)), "iam", "api")
		require.NoError(t, err)
		_, err = other.ParseAccess(access)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other, err := jwtx.NewHS256(testSecret, "someone-else", "api")
		require.NoError(t, err)
		_, err = other.ParseAccess(access)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		other, err := jwtx.NewHS256(testSecret, "iam", "web")
		require.NoError(t, err)
		_, err = other.ParseAccess(access)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.ParseAccess("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("none alg", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewAccessClaims("7", "", "ADMIN", "iam", "api", time.Minute, now))
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = h.ParseAccess(s)
		require.Error(t, err)
	})
}

func TestHS256Expiry(t *testing.T) {
	t.Parallel()
	h := newHS256(t)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tok, err := h.Sign(jwtx.NewAccessClaims("7", "", "STANDARD", "iam", "api", time.Minute, issued))
	require.NoError(t, err)

	h.Now = func() time.Time { return issued.Add(30 * time.Second) }
	_, err = h.ParseAccess(tok)
	require.NoError(t, err)

	h.Now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = h.ParseAccess(tok)
	require.ErrorIs(t, err, jwtx.ErrExpired)

	h.Leeway = 2 * time.Minute
	_, err = h.ParseAccess(tok)
	require.NoError(t, err)
}
