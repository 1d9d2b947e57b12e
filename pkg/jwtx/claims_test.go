package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/iamcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAccessClaimsValidate(t *testing.T) {
	now := time.Now()

	t.Run("well formed", func(t *testing.T) {
		c := jwtx.NewAccessClaims("42", "a@b.io", "STANDARD", "iam", "api", time.Minute, now)
		require.NoError(t, c.Validate())
		require.Equal(t, jwtx.UseAccess, c.Use)
		require.Equal(t, now.Add(time.Minute).Unix(), c.ExpiresAt.Unix())
	})

	t.Run("wrong use", func(t *testing.T) {
		c := jwtx.NewAccessClaims("42", "a@b.io", "STANDARD", "iam", "api", time.Minute, now)
		c.Use = jwtx.UseRefresh
		require.ErrorIs(t, c.Validate(), jwtx.ErrTokenUse)
	})

	t.Run("missing role", func(t *testing.T) {
		c := jwtx.NewAccessClaims("42", "a@b.io", "", "iam", "api", time.Minute, now)
		require.ErrorIs(t, c.Validate(), jwtx.ErrTokenUse)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := jwtx.NewAccessClaims("", "a@b.io", "STANDARD", "iam", "api", time.Minute, now)
		require.ErrorIs(t, c.Validate(), jwtx.ErrInvalidClaim)
	})
}

func TestRefreshClaimsValidate(t *testing.T) {
	now := time.Now()

	c := jwtx.NewRefreshClaims("42", "rti-1", "iam", "", time.Hour, now)
	require.NoError(t, c.Validate())
	require.Empty(t, c.Audience)

	c.RefreshTokenID = ""
	require.ErrorIs(t, c.Validate(), jwtx.ErrTokenUse)
}

func TestNewJTIUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := jwtx.NewJTI()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
