package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

const userColumns = `id, email, password_hash, role, google_id, tfa_enabled, tfa_secret, tfa_pending_secret, created_at, updated_at`

type usersRepo struct {
	q querier
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u        domain.User
		role     string
		googleID *string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &googleID,
		&u.TFAEnabled, &u.TFASecret, &u.TFAPendingSecret,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	if googleID != nil {
		u.GoogleID = *googleID
	}
	return u, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleStandard
	}

	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, google_id, tfa_enabled, tfa_secret)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		u.Email, u.PasswordHash, string(role), optional(u.GoogleID), u.TFAEnabled, u.TFASecret,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *usersRepo) GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

func (r *usersRepo) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) error {
	sets := []string{"updated_at = now()"}
	var args []any
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if upd.Role != nil {
		args = append(args, string(*upd.Role))
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}
	args = append(args, id)

	tag, err := r.q.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(tag)
}

func (r *usersRepo) SetTFAPendingSecret(ctx context.Context, id int64, secret string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET tfa_pending_secret = $1, updated_at = now() WHERE id = $2`, secret, id)
	if err != nil {
		return oops.Code("STORE_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}
	return requireRow(tag)
}

func (r *usersRepo) EnableTFA(ctx context.Context, id int64, secret string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET tfa_secret = $1, tfa_enabled = TRUE, tfa_pending_secret = '', updated_at = now() WHERE id = $2`,
		secret, id)
	if err != nil {
		return oops.Code("STORE_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}
	return requireRow(tag)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return oops.Code("STORE_DELETE_FAILED").With("user_id", id).Wrap(err)
	}
	return requireRow(tag)
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
