package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_id, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET token_id = excluded.token_id, expires_at = excluded.expires_at`,
		t.UserID, t.TokenID, toMillis(t.ExpiresAt),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, userID int64) (domain.RefreshToken, error) {
	var (
		t         = domain.RefreshToken{UserID: userID}
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token_id, expires_at FROM refresh_tokens WHERE user_id = ?`, userID,
	).Scan(&t.TokenID, &expiresAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	return t, nil
}

func (r *refreshTokensRepo) RotateRefreshToken(ctx context.Context, oldID string, next domain.RefreshToken, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET token_id = ?, expires_at = ?
		WHERE user_id = ? AND token_id = ? AND expires_at > ?`,
		next.TokenID, toMillis(next.ExpiresAt), next.UserID, oldID, toMillis(now),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
