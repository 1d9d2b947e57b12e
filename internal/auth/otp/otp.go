// Package otp implements RFC 6238 time-based one-time passwords for second
// factor verification.
package otp

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Defaults match what common authenticator apps assume.
const (
	DefaultPeriod     = 30 * time.Second
	DefaultSkew       = 1
	DefaultDigits     = otp.DigitsSix
	DefaultSecretSize = 20
	DefaultQRSize     = 256
)

var (
	ErrInvalidSecret = errors.New("otp: invalid secret")
	ErrInvalidURI    = errors.New("otp: invalid enrollment uri")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine generates and checks TOTP codes. The zero value is usable; Now may
// be replaced to pin the clock.
type Engine struct {
	Issuer    string
	Period    time.Duration
	Skew      uint
	Digits    otp.Digits
	Algorithm otp.Algorithm
	Now       func() time.Time
}

// New returns an Engine with the defaults and the given issuer.
func New(issuer string) *Engine {
	return &Engine{
		Issuer:    issuer,
		Period:    DefaultPeriod,
		Skew:      DefaultSkew,
		Digits:    DefaultDigits,
		Algorithm: otp.AlgorithmSHA1,
		Now:       time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) validateOpts() totp.ValidateOpts {
	period := e.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	digits := e.Digits
	if digits == 0 {
		digits = DefaultDigits
	}
	return totp.ValidateOpts{
		Period:    uint(period / time.Second),
		Skew:      e.Skew,
		Digits:    digits,
		Algorithm: e.Algorithm,
	}
}

// GenerateSecret returns a new random shared secret, base32 without padding.
func (e *Engine) GenerateSecret() (string, error) {
	buf := make([]byte, DefaultSecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("otp: generate secret: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// EnrollmentURI builds the otpauth:// URI for secret. An empty appName falls
// back to the engine's issuer.
func (e *Engine) EnrollmentURI(email, appName, secret string) (string, error) {
	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	if appName == "" {
		appName = e.Issuer
	}

	opts := e.validateOpts()
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      appName,
		AccountName: email,
		Period:      opts.Period,
		Secret:      raw,
		Digits:      opts.Digits,
		Algorithm:   opts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("otp: build uri: %w", err)
	}
	return key.URL(), nil
}

// Verify reports whether code is valid for secret at Now, accepting Skew
// steps either side. Malformed input is simply not valid.
func (e *Engine) Verify(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, e.now().UTC(), e.validateOpts())
	return err == nil && ok
}

// Code returns the code for secret at t.
func (e *Engine) Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), e.validateOpts())
}

// QRCode renders uri as a size x size PNG.
func (e *Engine) QRCode(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	key, err := otp.NewKeyFromURL(uri)
	if err != nil || key.Type() != "totp" {
		return nil, ErrInvalidURI
	}
	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("otp: render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("otp: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
	if s == "" {
		return nil, ErrInvalidSecret
	}
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return raw, nil
}
