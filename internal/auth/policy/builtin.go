package policy

import (
	"context"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
)

const (
	TypeOnlyAdmin   Type = "only_admin"
	TypeSelfOrAdmin Type = "self_or_admin"
)

// OnlyAdmin allows identities with the ADMIN role.
type OnlyAdmin struct{}

func (OnlyAdmin) PolicyType() Type { return TypeOnlyAdmin }

type OnlyAdminHandler struct{}

func (OnlyAdminHandler) Handle(_ context.Context, p Policy, id domain.Identity) error {
	if !id.IsAdmin() {
		return Deny(p, "User is not an admin")
	}
	return nil
}

// SelfOrAdmin allows the owner of the resource in context, or an admin.
type SelfOrAdmin struct{}

func (SelfOrAdmin) PolicyType() Type { return TypeSelfOrAdmin }

type SelfOrAdminHandler struct{}

func (SelfOrAdminHandler) Handle(ctx context.Context, p Policy, id domain.Identity) error {
	if id.IsAdmin() {
		return nil
	}
	owner, ok := ResourceOwner(ctx)
	if !ok {
		return Deny(p, "Resource owner unknown")
	}
	if id.IsZero() || owner != id.Subject {
		return Deny(p, "User does not own this resource")
	}
	return nil
}

type ownerKey struct{}

// WithResourceOwner records the user id that owns the resource being acted on.
func WithResourceOwner(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ownerKey{}, userID)
}

func ResourceOwner(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerKey{}).(int64)
	return id, ok
}
