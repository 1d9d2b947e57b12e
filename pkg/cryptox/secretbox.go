package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks values produced by SecretBox.Seal. Values without it are
// treated as legacy plaintext by Open.
const sealedPrefix = "sb1."

var (
	ErrSealedNoKey  = errors.New("cryptox: sealed value but no key configured")
	ErrSealedFormat = errors.New("cryptox: malformed sealed value")
)

// SecretBox encrypts small secrets (TOTP seeds) for storage using
// XChaCha20-Poly1305 with a key derived from operator key material. A
// SecretBox with no key passes values through unchanged.
type SecretBox struct {
	key []byte
}

// NewSecretBox derives a 256-bit key from material with HKDF-SHA256. Empty
// material yields a pass-through box.
func NewSecretBox(material string) (*SecretBox, error) {
	if material == "" {
		return &SecretBox{}, nil
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(material), nil, []byte("iamcore/secretbox/v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive secretbox key: %w", err)
	}
	return &SecretBox{key: key}, nil
}

// Enabled reports whether values are encrypted at rest.
func (b *SecretBox) Enabled() bool { return len(b.key) > 0 }

// Seal encrypts plaintext. Output: prefix + base64url(nonce || ciphertext || tag).
func (b *SecretBox) Seal(plaintext string) (string, error) {
	if !b.Enabled() || plaintext == "" {
		return plaintext, nil
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Unsealed values are returned as-is.
func (b *SecretBox) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !b.Enabled() {
		return "", ErrSealedNoKey
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSealedFormat, err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrSealedFormat
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}
