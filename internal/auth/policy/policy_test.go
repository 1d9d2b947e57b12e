package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/policy"
	"github.com/stretchr/testify/require"
)

var (
	admin    = domain.Identity{Subject: 1, Role: domain.RoleAdmin}
	standard = domain.Identity{Subject: 2, Role: domain.RoleStandard}
)

type named policy.Type

func (n named) PolicyType() policy.Type { return policy.Type(n) }

func TestOnlyAdmin(t *testing.T) {
	t.Parallel()
	r := policy.NewDefaultRegistry()
	ctx := context.Background()

	require.NoError(t, r.Evaluate(ctx, admin, policy.OnlyAdmin{}))

	err := r.Evaluate(ctx, standard, policy.OnlyAdmin{})
	require.ErrorIs(t, err, policy.ErrPolicyViolation)

	var v *policy.Violation
	require.ErrorAs(t, err, &v)
	require.Equal(t, policy.TypeOnlyAdmin, v.Policy)
	require.Equal(t, "User is not an admin", v.Reason)
}

func TestSelfOrAdmin(t *testing.T) {
	t.Parallel()
	r := policy.NewDefaultRegistry()

	own := policy.WithResourceOwner(context.Background(), standard.Subject)
	other := policy.WithResourceOwner(context.Background(), 99)

	require.NoError(t, r.Evaluate(own, standard, policy.SelfOrAdmin{}))
	require.NoError(t, r.Evaluate(other, admin, policy.SelfOrAdmin{}))
	require.ErrorIs(t, r.Evaluate(other, standard, policy.SelfOrAdmin{}), policy.ErrPolicyViolation)
	require.ErrorIs(t, r.Evaluate(context.Background(), standard, policy.SelfOrAdmin{}), policy.ErrPolicyViolation)
}

func TestUnregisteredPolicyFailsClosed(t *testing.T) {
	t.Parallel()
	r := policy.NewRegistry()

	err := r.Evaluate(context.Background(), admin, policy.OnlyAdmin{})
	require.ErrorIs(t, err, policy.ErrUnregisteredPolicy)
	require.NotErrorIs(t, err, policy.ErrPolicyViolation)

	require.ErrorIs(t, r.Check(named("custom")), policy.ErrUnregisteredPolicy)
}

func TestNilPolicyFailsClosed(t *testing.T) {
	t.Parallel()
	r := policy.NewDefaultRegistry()

	var missing policy.Policy
	require.NotPanics(t, func() {
		err := r.Evaluate(context.Background(), admin, policy.OnlyAdmin{}, missing)
		require.ErrorIs(t, err, policy.ErrUnregisteredPolicy)
		require.NotErrorIs(t, err, policy.ErrPolicyViolation)
	})
	require.ErrorIs(t, r.Check(missing), policy.ErrUnregisteredPolicy)
}

func TestEvaluateShortCircuits(t *testing.T) {
	t.Parallel()
	r := policy.NewRegistry()

	var calls []string
	record := func(name string, err error) policy.Handler {
		return policy.HandlerFunc(func(context.Context, policy.Policy, domain.Identity) error {
			calls = append(calls, name)
			return err
		})
	}
	require.NoError(t, r.Register("a", record("a", nil)))
	require.NoError(t, r.Register("b", record("b", &policy.Violation{Policy: "b", Reason: "no"})))
	require.NoError(t, r.Register("c", record("c", nil)))

	err := r.Evaluate(context.Background(), standard, named("a"), named("b"), named("c"))
	require.ErrorIs(t, err, policy.ErrPolicyViolation)
	require.Equal(t, []string{"a", "b"}, calls)
}

func TestHandlerErrorIsNotViolation(t *testing.T) {
	t.Parallel()
	r := policy.NewRegistry()
	boom := errors.New("lookup failed")
	require.NoError(t, r.Register("x", policy.HandlerFunc(func(context.Context, policy.Policy, domain.Identity) error {
		return boom
	})))

	err := r.Evaluate(context.Background(), admin, named("x"))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, policy.ErrPolicyViolation)
}

func TestRegisterReplacesAndSeal(t *testing.T) {
	t.Parallel()
	r := policy.NewDefaultRegistry()

	allow := policy.HandlerFunc(func(context.Context, policy.Policy, domain.Identity) error { return nil })
	require.NoError(t, r.Register(policy.TypeOnlyAdmin, allow))
	require.NoError(t, r.Evaluate(context.Background(), standard, policy.OnlyAdmin{}))

	r.Seal()
	require.ErrorIs(t, r.Register("late", allow), policy.ErrRegistrySealed)
	require.ErrorIs(t, r.Register(policy.TypeOnlyAdmin, policy.OnlyAdminHandler{}), policy.ErrRegistrySealed)
}

func TestOperationsTableIsCovered(t *testing.T) {
	t.Parallel()
	require.NoError(t, policy.CheckOperations(policy.NewDefaultRegistry(), policy.Operations))
	require.Error(t, policy.CheckOperations(policy.NewRegistry(), policy.Operations))

	del := policy.Operations[policy.OpDeleteUser]
	require.Equal(t, policy.AuthBearer, del.Auth)
	require.Equal(t, []policy.Policy{policy.OnlyAdmin{}}, del.Policies)
	require.Equal(t, policy.AuthNone, policy.Operations[policy.OpSignIn].Auth)
}
