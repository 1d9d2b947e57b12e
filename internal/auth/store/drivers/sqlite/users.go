package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
)

const userColumns = `id, email, password_hash, role, google_id, tfa_enabled, tfa_secret, tfa_pending_secret, created_at, updated_at`

type usersRepo struct {
	db dbtx
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                    domain.User
		role                 string
		googleID             sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &googleID,
		&u.TFAEnabled, &u.TFASecret, &u.TFAPendingSecret,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	u.GoogleID = googleID.String
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := toMillis(time.Now())
	role := u.Role
	if role == "" {
		role = domain.RoleStandard
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, role, google_id, tfa_enabled, tfa_secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, string(role), nullString(u.GoogleID), u.TFAEnabled, u.TFASecret, now, now,
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID))
}

func (r *usersRepo) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(time.Now())}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*upd.Role))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) SetTFAPendingSecret(ctx context.Context, id int64, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET tfa_pending_secret = ?, updated_at = ? WHERE id = ?`,
		secret, toMillis(time.Now()), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) EnableTFA(ctx context.Context, id int64, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET tfa_secret = ?, tfa_enabled = 1, tfa_pending_secret = '', updated_at = ? WHERE id = ?`,
		secret, toMillis(time.Now()), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
