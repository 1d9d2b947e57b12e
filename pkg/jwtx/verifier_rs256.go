package jwtx

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier validates RS256 JWTs issued by a third party (for example an
// OpenID provider) into caller-supplied claims.
type RS256Verifier struct {
	keys KeyGetter
	opts []jwt.ParserOption
}

// NewVerifierRS256 creates a verifier resolving keys by kid. Extra parser
// options (issuer, audience, time function) are applied on every Verify.
func NewVerifierRS256(keys KeyGetter, opts ...jwt.ParserOption) *RS256Verifier {
	return &RS256Verifier{keys: keys, opts: opts}
}

// Verify checks the signature and registered claims, decoding into claims.
func (v *RS256Verifier) Verify(tokenStr string, claims jwt.Claims) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}, v.opts...)

	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrUnknownKID)
		}

		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}

		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, ErrAlgMismatch
		}
		return rsaPub, nil
	})
	return mapParseError(err)
}
