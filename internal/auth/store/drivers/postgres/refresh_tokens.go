package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/samber/oops"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_id, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token_id = EXCLUDED.token_id, expires_at = EXCLUDED.expires_at`,
		t.UserID, t.TokenID, t.ExpiresAt,
	)
	if err != nil {
		return oops.Code("STORE_UPSERT_FAILED").With("user_id", t.UserID).Wrap(err)
	}
	return nil
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, userID int64) (domain.RefreshToken, error) {
	t := domain.RefreshToken{UserID: userID}
	err := r.q.QueryRow(ctx,
		`SELECT token_id, expires_at FROM refresh_tokens WHERE user_id = $1`, userID,
	).Scan(&t.TokenID, &t.ExpiresAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *refreshTokensRepo) RotateRefreshToken(ctx context.Context, oldID string, next domain.RefreshToken, now time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET token_id = $1, expires_at = $2
		WHERE user_id = $3 AND token_id = $4 AND expires_at > $5`,
		next.TokenID, next.ExpiresAt, next.UserID, oldID, now,
	)
	if err != nil {
		return false, oops.Code("STORE_UPDATE_FAILED").With("user_id", next.UserID).Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, userID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return oops.Code("STORE_DELETE_FAILED").With("user_id", userID).Wrap(err)
	}
	return nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("STORE_DELETE_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
