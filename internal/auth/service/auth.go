package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/ledger"
	"github.com/aussiebroadwan/iamcore/internal/auth/otp"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/aussiebroadwan/iamcore/pkg/cryptox"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 10

// SignInResult is returned by password and external sign-in.
type SignInResult struct {
	UserID int64
	Tokens domain.TokenPair
}

// AuthService owns the credential and token lifecycle: sign-up, sign-in with
// optional TOTP step-up, refresh rotation with reuse detection, and 2FA
// enrollment.
type AuthService struct {
	Store   store.Store
	Ledger  ledger.Ledger
	Hasher  cryptox.Hasher
	Tokens  *Issuer
	OTP     *otp.Engine
	Secrets *cryptox.SecretBox
	Google  GoogleVerifier

	TFAAppName string

	// RequireTFAConfirmation keeps generated secrets pending until a code
	// from them is confirmed. When false, generating a secret enables 2FA.
	RequireTFAConfirmation bool

	dummyOnce sync.Once
	dummyHash string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// SignUp creates a STANDARD user with a local password. It never issues
// tokens.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (id int64, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.SignUp")
	defer func() { finishSpan(span, err) }()

	email = normalizeEmail(email)
	if !validEmail(email) {
		return 0, invalidRequest("AUTH_INVALID_EMAIL", "email is not a valid address")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return 0, invalidRequest("AUTH_WEAK_PASSWORD", "password must be at least 10 characters")
	}

	hash, err := s.Hasher.Hash(password)
	if errors.Is(err, cryptox.ErrPasswordTooLong) {
		return 0, invalidRequest("AUTH_PASSWORD_TOO_LONG", "password is too long")
	}
	if err != nil {
		return 0, internalError("AUTH_HASH_FAILURE", err)
	}

	id, err = s.Store.Users().CreateUser(ctx, domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleStandard,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return 0, oopsConflict("AUTH_EMAIL_TAKEN", err)
	}
	if err != nil {
		return 0, internalError("AUTH_STORE_FAILURE", err)
	}

	slogx.FromContext(ctx).Info("user signed up", "user_id", id)
	return id, nil
}

// SignIn authenticates with email and password, plus a TOTP code when the
// user has 2FA enabled. Every failure is ErrUnauthorized.
func (s *AuthService) SignIn(ctx context.Context, email, password, tfaCode string) (res SignInResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.SignIn")
	defer func() {
		signIns.WithLabelValues("password", resultLabel(err)).Inc()
		finishSpan(span, err)
	}()

	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		s.burnDummyVerify(password)
		return SignInResult{}, unauthorized("AUTH_BAD_CREDENTIALS")
	}
	if err != nil {
		return SignInResult{}, internalError("AUTH_STORE_FAILURE", err)
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))

	if u.ExternalOnly() {
		s.burnDummyVerify(password)
		return SignInResult{}, unauthorized("AUTH_BAD_CREDENTIALS", "user_id", u.ID)
	}
	ok, err := s.Hasher.Verify(password, u.PasswordHash)
	if err != nil {
		slogx.FromContext(ctx).Error("password digest unreadable", "user_id", u.ID, "error", err)
		return SignInResult{}, unauthorized("AUTH_BAD_CREDENTIALS", "user_id", u.ID)
	}
	if !ok {
		return SignInResult{}, unauthorized("AUTH_BAD_CREDENTIALS", "user_id", u.ID)
	}

	if u.TFAEnabled {
		if strings.TrimSpace(tfaCode) == "" {
			return SignInResult{}, unauthorized("AUTH_TFA_REQUIRED", "user_id", u.ID)
		}
		secret, err := s.openSecret(u.TFASecret)
		if err != nil {
			return SignInResult{}, internalError("AUTH_TFA_SECRET", err, "user_id", u.ID)
		}
		if !s.VerifyOTP(tfaCode, secret) {
			return SignInResult{}, unauthorized("AUTH_TFA_INVALID", "user_id", u.ID)
		}
	}

	pair, err := s.GenerateTokens(ctx, u)
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{UserID: u.ID, Tokens: pair}, nil
}

// burnDummyVerify spends the same hashing work a real verification would, so
// an unknown email answers no faster than a wrong password.
func (s *AuthService) burnDummyVerify(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("iamcore-timing-equalizer")
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = s.Hasher.Verify(password, s.dummyHash)
	}
}

// Refresh rotates a refresh token. Presenting a token whose id is no longer
// current revokes the user's session and returns an error matching both
// ErrUnauthorized and ErrRefreshReuse.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Refresh")
	defer func() { finishSpan(span, err) }()
	l := slogx.FromContext(ctx)

	id, err := s.Tokens.VerifyRefresh(strings.TrimSpace(refreshToken))
	if err != nil {
		refreshes.WithLabelValues("rejected").Inc()
		return domain.TokenPair{}, unauthorized("AUTH_BAD_REFRESH", "reason", err.Error())
	}
	span.SetAttributes(attribute.Int64("user.id", id.Subject))

	u, err := s.Store.Users().GetUserByID(ctx, id.Subject)
	if errors.Is(err, store.ErrNotFound) {
		refreshes.WithLabelValues("rejected").Inc()
		return domain.TokenPair{}, unauthorized("AUTH_UNKNOWN_SUBJECT", "user_id", id.Subject)
	}
	if err != nil {
		return domain.TokenPair{}, internalError("AUTH_STORE_FAILURE", err, "user_id", id.Subject)
	}

	// Minted before the ledger call so retiring the old id and recording the
	// new one happen in a single step.
	next, rti, err := s.mintPair(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	res, err := s.Ledger.Rotate(ctx, u.ID, id.RefreshTokenID, rti, s.Tokens.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, internalError("AUTH_LEDGER_FAILURE", err, "user_id", u.ID)
	}

	switch res {
	case ledger.Valid:
		refreshes.WithLabelValues("rotated").Inc()
		return next, nil

	case ledger.Reused:
		refreshes.WithLabelValues("reused").Inc()
		refreshReuse.Inc()
		l.Warn("refresh token reuse detected, session revoked",
			"user_id", u.ID,
			"refresh_token_id", id.RefreshTokenID,
			"token_fp", cryptox.FingerprintToken(refreshToken),
		)
		return domain.TokenPair{}, errRefreshReused(u.ID)

	default:
		refreshes.WithLabelValues("rejected").Inc()
		return domain.TokenPair{}, unauthorized("AUTH_BAD_REFRESH", "user_id", u.ID)
	}
}

// GenerateTokens mints an access and refresh token pair for u and records the
// new refresh-token-id as the user's only valid one. Refresh records its pair
// through Ledger.Rotate instead.
func (s *AuthService) GenerateTokens(ctx context.Context, u domain.User) (pair domain.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.GenerateTokens")
	defer func() { finishSpan(span, err) }()

	pair, rti, err := s.mintPair(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.Ledger.Insert(ctx, u.ID, rti, s.Tokens.RefreshTTL); err != nil {
		return domain.TokenPair{}, internalError("AUTH_LEDGER_FAILURE", err, "user_id", u.ID)
	}
	return pair, nil
}

// mintPair signs both tokens concurrently and returns the pair with its new
// refresh-token-id. Nothing is recorded in the ledger.
func (s *AuthService) mintPair(u domain.User) (pair domain.TokenPair, rti string, err error) {
	rti = uuid.NewString()

	var g errgroup.Group
	g.Go(func() error {
		tok, exp, err := s.Tokens.MintAccess(u)
		pair.AccessToken, pair.AccessExpiresAt = tok, exp
		return err
	})
	g.Go(func() error {
		tok, exp, err := s.Tokens.MintRefresh(u, rti)
		pair.RefreshToken, pair.RefreshExpiresAt = tok, exp
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TokenPair{}, "", internalError("AUTH_TOKEN_MINT", err, "user_id", u.ID)
	}
	return pair, rti, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthorized):
		return "denied"
	default:
		return "error"
	}
}
