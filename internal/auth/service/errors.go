package service

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Sentinel errors returned by the service layer. Their messages double as the
// error codes of the HTTP envelope.
var (
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
	ErrInvalidRequest = errors.New("invalid_request")

	// ErrRefreshReuse marks a presented refresh token that was already
	// rotated or revoked. Errors carrying it also match ErrUnauthorized.
	ErrRefreshReuse = errors.New("refresh_token_reused")
)

// IsRefreshReuse reports whether err is the theft signal raised by Refresh.
func IsRefreshReuse(err error) bool {
	return errors.Is(err, ErrRefreshReuse)
}

// internalError wraps a backend failure so that it matches ErrInternal while
// keeping the cause for logs.
func internalError(code string, err error, kv ...any) error {
	return oops.Code(code).With(kv...).Wrap(fmt.Errorf("%w: %w", ErrInternal, err))
}

func unauthorized(code string, kv ...any) error {
	return oops.Code(code).With(kv...).Wrap(ErrUnauthorized)
}

func invalidRequest(code, msg string) error {
	return oops.Code(code).Wrap(fmt.Errorf("%w: %s", ErrInvalidRequest, msg))
}

func oopsConflict(code string, err error) error {
	return oops.Code(code).Wrap(fmt.Errorf("%w: %w", ErrConflict, err))
}

func errRefreshReused(userID int64) error {
	return oops.Code("AUTH_REFRESH_REUSED").
		With("user_id", userID).
		Wrap(fmt.Errorf("%w: %w", ErrUnauthorized, ErrRefreshReuse))
}
