package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently ignores input past 72 bytes; we refuse it instead.
const bcryptMaxPasswordSize = 72

var (
	ErrInvalidHash       = errors.New("cryptox: invalid hash format")
	ErrUnsupportedHash   = errors.New("cryptox: unsupported hash algorithm")
	ErrUnsupportedHasher = errors.New("cryptox: unsupported hasher")
	ErrPasswordTooLong   = errors.New("cryptox: password exceeds bcrypt limit")
	ErrInvalidBcryptCost = errors.New("cryptox: invalid bcrypt cost")
)

// Hasher hashes and verifies passwords. Digests are self-describing: they
// carry their salt and cost parameters, so two calls with the same input
// produce different digests.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// Argon2idHasher produces PHC-format Argon2id digests. The pepper is appended
// to the password before hashing and is never stored in the digest.
type Argon2idHasher struct {
	Pepper string
}

func (h Argon2idHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		iterations,
		memory,
		parallelism,
		keyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify compares a plaintext password against a PHC-style Argon2id digest.
// A mismatch is reported as (false, nil); a malformed digest is an error.
func (h Argon2idHasher) Verify(password, digest string) (bool, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return false, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return false, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: hash: %v", ErrInvalidHash, err)
	}

	computed := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - digest length is bounded by the encoder
	)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// BcryptHasher produces standard $2a$ bcrypt digests.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) > bcryptMaxPasswordSize {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", ErrInvalidBcryptCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}

// MultiHasher hashes with Primary and verifies any digest whose algorithm it
// recognises, so switching algorithms does not lock out existing users.
type MultiHasher struct {
	Primary Hasher
	Argon2  Argon2idHasher
	Bcrypt  BcryptHasher
}

// NewHasher builds a MultiHasher whose primary algorithm is named by algo
// ("argon2id" or "bcrypt").
func NewHasher(algo, pepper string, bcryptCost int) (*MultiHasher, error) {
	m := &MultiHasher{
		Argon2: Argon2idHasher{Pepper: pepper},
		Bcrypt: BcryptHasher{Cost: bcryptCost},
	}
	switch strings.ToLower(algo) {
	case "", "argon2id":
		m.Primary = m.Argon2
	case "bcrypt":
		m.Primary = m.Bcrypt
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHasher, algo)
	}
	return m, nil
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.Primary.Hash(password)
}

func (m *MultiHasher) Verify(password, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return m.Argon2.Verify(password, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return m.Bcrypt.Verify(password, digest)
	default:
		return false, ErrUnsupportedHash
	}
}
