package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/samber/oops"
)

// Store keeps ledger entries in the refresh_tokens table of a SQL store.
type Store struct {
	store store.Store

	// Now is the expiry clock; tests pin it.
	Now func() time.Time
}

func NewStore(s store.Store) *Store {
	return &Store{store: s, Now: time.Now}
}

func (l *Store) Insert(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error {
	err := l.store.RefreshTokens().UpsertRefreshToken(ctx, domain.RefreshToken{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: l.Now().Add(ttl),
	})
	if err != nil {
		return oops.Code("LEDGER_STORE_FAILURE").With("user_id", userID).Wrap(err)
	}
	return nil
}

func (l *Store) Validate(ctx context.Context, userID int64, tokenID string) (Result, error) {
	if malformed(tokenID) {
		return Invalid, nil
	}
	row, err := l.store.RefreshTokens().GetRefreshToken(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Reused, nil
	}
	if err != nil {
		return Invalid, oops.Code("LEDGER_STORE_FAILURE").With("user_id", userID).Wrap(err)
	}
	if row.TokenID != tokenID || !l.Now().Before(row.ExpiresAt) {
		return Reused, nil
	}
	return Valid, nil
}

func (l *Store) Rotate(ctx context.Context, userID int64, oldID, newID string, ttl time.Duration) (Result, error) {
	if malformed(oldID) {
		return Invalid, nil
	}

	now := l.Now()
	next := domain.RefreshToken{UserID: userID, TokenID: newID, ExpiresAt: now.Add(ttl)}

	res := Reused
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.RefreshTokens().RotateRefreshToken(ctx, oldID, next, now)
		if err != nil {
			return err
		}
		if ok {
			res = Valid
			return nil
		}
		return tx.RefreshTokens().DeleteRefreshToken(ctx, userID)
	})
	if err != nil {
		return Invalid, oops.Code("LEDGER_STORE_FAILURE").With("user_id", userID).Wrap(err)
	}
	return res, nil
}

func (l *Store) Invalidate(ctx context.Context, userID int64) error {
	if err := l.store.RefreshTokens().DeleteRefreshToken(ctx, userID); err != nil {
		return oops.Code("LEDGER_STORE_FAILURE").With("user_id", userID).Wrap(err)
	}
	return nil
}

// Sweep deletes expired rows and reports how many were removed.
func (l *Store) Sweep(ctx context.Context) (int64, error) {
	n, err := l.store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, l.Now())
	if err != nil {
		return 0, oops.Code("LEDGER_STORE_FAILURE").Wrap(err)
	}
	return n, nil
}
