package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it so a transaction can expose the
// same surface without allowing a transaction to be opened inside another.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts u and returns the assigned id. A duplicate email or
	// google id yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error)

	// UpdateUser applies the non-nil fields of upd and bumps updated_at.
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) error

	// SetTFAPendingSecret stores an enrollment secret without enabling 2FA.
	SetTFAPendingSecret(ctx context.Context, id int64, secret string) error

	// EnableTFA stores secret as the active TOTP secret, sets tfa_enabled and
	// clears any pending secret.
	EnableTFA(ctx context.Context, id int64, secret string) error

	// DeleteUser removes the user; its refresh token row cascades.
	DeleteUser(ctx context.Context, id int64) error
}

// RefreshTokens persists the refresh ledger: at most one row per user.
type RefreshTokens interface {
	// UpsertRefreshToken replaces the user's current token id.
	UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshToken returns the user's row, expired or not.
	GetRefreshToken(ctx context.Context, userID int64) (domain.RefreshToken, error)

	// RotateRefreshToken replaces the row with next only when it holds oldID
	// and has not expired at now, reporting whether the row was replaced.
	RotateRefreshToken(ctx context.Context, oldID string, next domain.RefreshToken, now time.Time) (bool, error)

	DeleteRefreshToken(ctx context.Context, userID int64) error

	// DeleteExpiredRefreshTokens removes rows expired at now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
