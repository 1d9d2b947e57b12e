package service

import (
	"strconv"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/pkg/jwtx"
)

// Issuer mints and verifies the service's access and refresh tokens.
type Issuer struct {
	signer     *jwtx.HS256
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewIssuer applies the jwtx default lifetimes to zero TTLs.
func NewIssuer(signer *jwtx.HS256, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &Issuer{signer: signer, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

func (i *Issuer) now() time.Time {
	if i.signer.Now != nil {
		return i.signer.Now()
	}
	return time.Now()
}

// MintAccess signs an access token for u.
func (i *Issuer) MintAccess(u domain.User) (string, time.Time, error) {
	now := i.now()
	claims := jwtx.NewAccessClaims(
		strconv.FormatInt(u.ID, 10), u.Email, u.Role.String(),
		i.signer.Issuer(), i.signer.Audience(), i.AccessTTL, now,
	)
	tok, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, claims.ExpiresAt.Time, nil
}

// MintRefresh signs a refresh token carrying refreshTokenID.
func (i *Issuer) MintRefresh(u domain.User, refreshTokenID string) (string, time.Time, error) {
	now := i.now()
	claims := jwtx.NewRefreshClaims(
		strconv.FormatInt(u.ID, 10), refreshTokenID,
		i.signer.Issuer(), i.signer.Audience(), i.RefreshTTL, now,
	)
	tok, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, claims.ExpiresAt.Time, nil
}

// VerifyAccess returns the identity of a valid access token. Errors are the
// jwtx sentinels.
func (i *Issuer) VerifyAccess(token string) (domain.Identity, error) {
	claims, err := i.signer.ParseAccess(token)
	if err != nil {
		return domain.Identity{}, err
	}
	sub, err := parseSubject(claims.Subject)
	if err != nil {
		return domain.Identity{}, err
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Identity{}, jwtx.ErrTokenUse
	}
	return domain.Identity{Subject: sub, Email: claims.Email, Role: role}, nil
}

// VerifyRefresh returns the subject and refresh-token-id of a valid refresh
// token. Email and Role are not carried by refresh tokens.
func (i *Issuer) VerifyRefresh(token string) (domain.Identity, error) {
	claims, err := i.signer.ParseRefresh(token)
	if err != nil {
		return domain.Identity{}, err
	}
	sub, err := parseSubject(claims.Subject)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Subject: sub, RefreshTokenID: claims.RefreshTokenID}, nil
}

func parseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, jwtx.ErrInvalidClaim
	}
	return id, nil
}
