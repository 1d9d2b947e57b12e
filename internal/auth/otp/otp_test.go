package otp_test

import (
	"bytes"
	"image/png"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/otp"
	"github.com/stretchr/testify/require"
)

func fixedEngine(at time.Time) *otp.Engine {
	e := otp.New("iamcore")
	e.Now = func() time.Time { return at }
	return e
}

func TestGenerateSecret(t *testing.T) {
	e := otp.New("iamcore")
	a, err := e.GenerateSecret()
	require.NoError(t, err)
	b, err := e.GenerateSecret()
	require.NoError(t, err)

	require.Len(t, a, 32) // 20 bytes, unpadded base32
	require.NotEqual(t, a, b)
}

func TestEnrollmentURI(t *testing.T) {
	e := otp.New("iamcore")
	secret, err := e.GenerateSecret()
	require.NoError(t, err)

	uri, err := e.EnrollmentURI("user@example.com", "Acme", secret)
	require.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	require.Equal(t, "/Acme:user@example.com", u.Path)
	require.Equal(t, secret, u.Query().Get("secret"))
	require.Equal(t, "Acme", u.Query().Get("issuer"))

	t.Run("falls back to issuer", func(t *testing.T) {
		uri, err := e.EnrollmentURI("user@example.com", "", secret)
		require.NoError(t, err)
		require.Contains(t, uri, "issuer=iamcore")
	})

	t.Run("bad secret", func(t *testing.T) {
		_, err := e.EnrollmentURI("user@example.com", "Acme", "not base32!")
		require.ErrorIs(t, err, otp.ErrInvalidSecret)
	})
}

func TestVerifyWithFixedClock(t *testing.T) {
	// Middle of a 30 second step.
	now := time.Date(2026, 3, 1, 10, 0, 15, 0, time.UTC)
	e := fixedEngine(now)
	secret, err := e.GenerateSecret()
	require.NoError(t, err)

	current, err := e.Code(secret, now)
	require.NoError(t, err)
	prev, err := e.Code(secret, now.Add(-30*time.Second))
	require.NoError(t, err)
	next, err := e.Code(secret, now.Add(30*time.Second))
	require.NoError(t, err)
	stale, err := e.Code(secret, now.Add(-90*time.Second))
	require.NoError(t, err)

	require.True(t, e.Verify(current, secret))
	require.True(t, e.Verify(prev, secret), "one step behind is within skew")
	require.True(t, e.Verify(next, secret), "one step ahead is within skew")
	if stale != current && stale != prev && stale != next {
		require.False(t, e.Verify(stale, secret))
	}

	require.False(t, e.Verify("", secret))
	require.False(t, e.Verify(current, ""))
	require.False(t, e.Verify("12345", secret))
	require.False(t, e.Verify("abcdef", secret))
}

func TestQRCode(t *testing.T) {
	e := otp.New("iamcore")
	secret, err := e.GenerateSecret()
	require.NoError(t, err)
	uri, err := e.EnrollmentURI("user@example.com", "", secret)
	require.NoError(t, err)

	raw, err := e.QRCode(uri, 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 128, img.Bounds().Dx())

	_, err = e.QRCode("https://example.com", 128)
	require.ErrorIs(t, err, otp.ErrInvalidURI)
}
