package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
)

// EnrollmentStatus tells the caller what EnrollTFA did with the new secret.
type EnrollmentStatus string

const (
	EnrollmentEnabled EnrollmentStatus = "enabled"
	EnrollmentPending EnrollmentStatus = "pending_confirmation"
)

// GenerateOTPEnrollment creates a new TOTP secret and its otpauth:// URI for
// email. Nothing is persisted.
func (s *AuthService) GenerateOTPEnrollment(ctx context.Context, email string) (domain.OTPEnrollment, error) {
	_, span := tracer.Start(ctx, "AuthService.GenerateOTPEnrollment")
	defer span.End()

	secret, err := s.OTP.GenerateSecret()
	if err != nil {
		return domain.OTPEnrollment{}, internalError("AUTH_TFA_GENERATE", err)
	}
	uri, err := s.OTP.EnrollmentURI(normalizeEmail(email), s.TFAAppName, secret)
	if err != nil {
		return domain.OTPEnrollment{}, internalError("AUTH_TFA_GENERATE", err)
	}
	return domain.OTPEnrollment{URI: uri, Secret: secret}, nil
}

// EnrollTFA generates a secret for the user and either enables it straight
// away or parks it until ConfirmTFA, depending on RequireTFAConfirmation.
func (s *AuthService) EnrollTFA(ctx context.Context, email string) (domain.OTPEnrollment, EnrollmentStatus, error) {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return domain.OTPEnrollment{}, "", err
	}
	enr, err := s.GenerateOTPEnrollment(ctx, u.Email)
	if err != nil {
		return domain.OTPEnrollment{}, "", err
	}

	if !s.RequireTFAConfirmation {
		if err := s.EnableTFA(ctx, u.Email, enr.Secret); err != nil {
			return domain.OTPEnrollment{}, "", err
		}
		return enr, EnrollmentEnabled, nil
	}

	sealed, err := s.sealSecret(enr.Secret)
	if err != nil {
		return domain.OTPEnrollment{}, "", internalError("AUTH_TFA_SECRET", err, "user_id", u.ID)
	}
	if err := s.Store.Users().SetTFAPendingSecret(ctx, u.ID, sealed); err != nil {
		return domain.OTPEnrollment{}, "", internalError("AUTH_STORE_FAILURE", err, "user_id", u.ID)
	}
	return enr, EnrollmentPending, nil
}

// EnableTFA stores secret as the user's active TOTP secret and turns 2FA on.
func (s *AuthService) EnableTFA(ctx context.Context, email, secret string) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.EnableTFA")
	defer func() { finishSpan(span, err) }()

	secret = strings.TrimSpace(secret)
	if _, err := s.OTP.Code(secret, time.Now()); secret == "" || err != nil {
		return invalidRequest("AUTH_TFA_BAD_SECRET", "secret is not valid base32")
	}

	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	sealed, err := s.sealSecret(secret)
	if err != nil {
		return internalError("AUTH_TFA_SECRET", err, "user_id", u.ID)
	}
	if err := s.Store.Users().EnableTFA(ctx, u.ID, sealed); err != nil {
		return internalError("AUTH_STORE_FAILURE", err, "user_id", u.ID)
	}

	slogx.FromContext(ctx).Info("two-factor authentication enabled", "user_id", u.ID)
	return nil
}

// ConfirmTFA enables the pending secret once code verifies against it.
func (s *AuthService) ConfirmTFA(ctx context.Context, email, code string) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.ConfirmTFA")
	defer func() { finishSpan(span, err) }()

	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.TFAPendingSecret == "" {
		return invalidRequest("AUTH_TFA_NOT_PENDING", "no pending two-factor enrollment")
	}
	secret, err := s.openSecret(u.TFAPendingSecret)
	if err != nil {
		return internalError("AUTH_TFA_SECRET", err, "user_id", u.ID)
	}
	if !s.VerifyOTP(code, secret) {
		return unauthorized("AUTH_TFA_INVALID", "user_id", u.ID)
	}
	return s.EnableTFA(ctx, u.Email, secret)
}

// VerifyOTP checks code against a plaintext base32 secret.
func (s *AuthService) VerifyOTP(code, secret string) bool {
	return s.OTP.Verify(strings.TrimSpace(code), secret)
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, unauthorized("AUTH_UNKNOWN_SUBJECT")
	}
	if err != nil {
		return domain.User{}, internalError("AUTH_STORE_FAILURE", err)
	}
	return u, nil
}

func (s *AuthService) sealSecret(secret string) (string, error) {
	if s.Secrets == nil {
		return secret, nil
	}
	return s.Secrets.Seal(secret)
}

func (s *AuthService) openSecret(value string) (string, error) {
	if s.Secrets == nil {
		return value, nil
	}
	return s.Secrets.Open(value)
}
