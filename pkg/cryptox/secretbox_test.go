package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/iamcore/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSecretBox_RoundTrip(t *testing.T) {
	box, err := cryptox.NewSecretBox("operator-key-material")
	require.NoError(t, err)
	require.True(t, box.Enabled())

	sealed, err := box.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, "sb1."))
	require.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	again, err := box.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonces must differ")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", opened)
}

func TestSecretBox_PassThrough(t *testing.T) {
	box, err := cryptox.NewSecretBox("")
	require.NoError(t, err)
	require.False(t, box.Enabled())

	sealed, err := box.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", sealed)

	// Legacy plaintext values are readable by a keyed box too.
	keyed, err := cryptox.NewSecretBox("k")
	require.NoError(t, err)
	opened, err := keyed.Open("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", opened)
}

func TestSecretBox_Failures(t *testing.T) {
	box, err := cryptox.NewSecretBox("key-one")
	require.NoError(t, err)
	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		other, err := cryptox.NewSecretBox("key-two")
		require.NoError(t, err)
		_, err = other.Open(sealed)
		require.Error(t, err)
	})

	t.Run("no key", func(t *testing.T) {
		plain, err := cryptox.NewSecretBox("")
		require.NoError(t, err)
		_, err = plain.Open(sealed)
		require.ErrorIs(t, err, cryptox.ErrSealedNoKey)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := box.Open("sb1.AAAA")
		require.ErrorIs(t, err, cryptox.ErrSealedFormat)
	})
}
