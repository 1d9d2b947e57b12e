package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/google"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
)

// GoogleVerifier validates a Google ID token. *google.Verifier implements it.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (google.Identity, error)
}

// SignInWithGoogle maps a verified Google account onto a local user, creating
// one (STANDARD, no password) on first sign-in, and issues tokens. A Google
// account whose email already belongs to another local user is a conflict;
// every other failure is ErrUnauthorized.
func (s *AuthService) SignInWithGoogle(ctx context.Context, idToken string) (res SignInResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.SignInWithGoogle")
	defer func() {
		signIns.WithLabelValues("google", resultLabel(err)).Inc()
		finishSpan(span, err)
	}()
	l := slogx.FromContext(ctx)

	if s.Google == nil {
		return SignInResult{}, unauthorized("AUTH_GOOGLE_DISABLED")
	}
	gid, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		l.Info("google id token rejected", "error", err)
		return SignInResult{}, unauthorized("AUTH_GOOGLE_TOKEN", "reason", err.Error())
	}

	u, err := s.Store.Users().GetUserByGoogleID(ctx, gid.Subject)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		u = domain.User{
			Email:    normalizeEmail(gid.Email),
			Role:     domain.RoleStandard,
			GoogleID: gid.Subject,
		}
		u.ID, err = s.Store.Users().CreateUser(ctx, u)
		if errors.Is(err, store.ErrAlreadyExists) {
			return SignInResult{}, oopsConflict("AUTH_GOOGLE_EMAIL_TAKEN", err)
		}
		if err != nil {
			l.Error("failed to create google user", "error", err)
			return SignInResult{}, unauthorized("AUTH_GOOGLE_CREATE")
		}
		l.Info("user created from google account", "user_id", u.ID)
	default:
		l.Error("failed to look up google user", "error", err)
		return SignInResult{}, unauthorized("AUTH_GOOGLE_LOOKUP")
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))

	pair, err := s.GenerateTokens(ctx, u)
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{UserID: u.ID, Tokens: pair}, nil
}
