package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock, newStoreWithPool(mock)
}

var userCols = []string{
	"id", "email", "password_hash", "role", "google_id",
	"tfa_enabled", "tfa_secret", "tfa_pending_secret", "created_at", "updated_at",
}

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantID    int64
		wantErr   error
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("a@example.com", "hash", "STANDARD", (*string)(nil), false, "").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
			},
			wantID: 7,
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("a@example.com", "hash", "STANDARD", (*string)(nil), false, "").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_key"})
			},
			wantErr: store.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, s := newMock(t)
			tt.setupMock(mock)

			id, err := s.Users().CreateUser(context.Background(), domain.User{Email: "a@example.com", PasswordHash: "hash"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestGetUserByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, s := newMock(t)
		now := time.Now().UTC()
		gid := "g-1"
		mock.ExpectQuery(`SELECT .* FROM users WHERE lower\(email\) = lower\(\$1\)`).
			WithArgs("a@example.com").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(int64(3), "a@example.com", "", "ADMIN", &gid, true, "SECRET", "", now, now))

		u, err := s.Users().GetUserByEmail(context.Background(), "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), u.ID)
		assert.Equal(t, domain.RoleAdmin, u.Role)
		assert.Equal(t, "g-1", u.GoogleID)
		assert.True(t, u.TFAEnabled)
	})

	t.Run("not found", func(t *testing.T) {
		mock, s := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM users`).
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.Users().GetUserByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUpdateUser(t *testing.T) {
	mock, s := newMock(t)
	role := domain.RoleAdmin
	mock.ExpectExec(`UPDATE users SET updated_at = now\(\), role = \$1 WHERE id = \$2`).
		WithArgs("ADMIN", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.Users().UpdateUser(context.Background(), 5, domain.UserUpdate{Role: &role})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRotateInTx(t *testing.T) {
	mock, s := newMock(t)
	next := domain.RefreshToken{UserID: 1, TokenID: "rti-2", ExpiresAt: time.Now().Add(time.Hour)}
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET token_id = \$1, expires_at = \$2\s+WHERE user_id = \$3 AND token_id = \$4`).
		WithArgs("rti-2", next.ExpiresAt, int64(1), "rti", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	var rotated bool
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		rotated, err = tx.RefreshTokens().RotateRefreshToken(context.Background(), "rti", next, time.Now())
		return err
	})
	require.NoError(t, err)
	assert.True(t, rotated)
}

func TestWithTxRollback(t *testing.T) {
	mock, s := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(store.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db/iam", migrateURL("postgres://u:p@db/iam"))
	assert.Equal(t, "pgx5://db/iam", migrateURL("postgresql://db/iam"))
	assert.Equal(t, "pgx5://db/iam", migrateURL("pgx5://db/iam"))
}
