package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/ledger"
	"github.com/aussiebroadwan/iamcore/internal/auth/policy"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
)

// UserService backs the /users resource. Authorization of the caller against
// the target user happens in the HTTP layer; role changes are additionally
// checked here through Registry.
type UserService struct {
	Store    store.Store
	Ledger   ledger.Ledger
	Registry *policy.Registry
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, internalError("USER_STORE_FAILURE", err, "user_id", id)
	}
	return u, nil
}

// UpdateUser changes email and/or role. Only an ADMIN caller may change a role.
func (s *UserService) UpdateUser(ctx context.Context, caller domain.Identity, id int64, upd domain.UserUpdate) (domain.User, error) {
	if upd.Role != nil {
		if s.Registry == nil {
			return domain.User{}, internalError("USER_NO_REGISTRY", policy.ErrUnregisteredPolicy, "user_id", id)
		}
		if err := s.Registry.Evaluate(ctx, caller, policy.OnlyAdmin{}); err != nil {
			if errors.Is(err, policy.ErrPolicyViolation) {
				return domain.User{}, err
			}
			return domain.User{}, internalError("USER_POLICY_FAILURE", err, "user_id", id)
		}
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if !validEmail(email) {
			return domain.User{}, invalidRequest("USER_INVALID_EMAIL", "email is not a valid address")
		}
		upd.Email = &email
	}

	err := s.Store.Users().UpdateUser(ctx, id, upd)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.User{}, oopsConflict("USER_EMAIL_TAKEN", err)
	case err != nil:
		return domain.User{}, internalError("USER_STORE_FAILURE", err, "user_id", id)
	}

	slogx.FromContext(ctx).Info("user updated", "user_id", id, "by", caller.Subject)
	return s.GetUserByID(ctx, id)
}

// DeleteUser removes the user and revokes its refresh token.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	err := s.Store.Users().DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return internalError("USER_STORE_FAILURE", err, "user_id", id)
	}
	if err := s.Ledger.Invalidate(ctx, id); err != nil {
		return internalError("USER_LEDGER_FAILURE", err, "user_id", id)
	}
	slogx.FromContext(ctx).Info("user deleted", "user_id", id)
	return nil
}
