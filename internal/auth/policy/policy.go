// Package policy dispatches authorization policies to their handlers.
//
// A Policy is plain data naming a rule; a Handler decides it for an
// identity. Handlers are looked up in a Registry by the policy's Type, so a
// policy without a registered handler fails closed.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
)

type Type string

// Policy names an authorization rule. Implementations carry whatever
// parameters their handler needs.
type Policy interface {
	PolicyType() Type
}

// Handler decides a policy for an identity. It returns nil to allow, a
// *Violation to deny, or any other error when it could not decide.
type Handler interface {
	Handle(ctx context.Context, p Policy, id domain.Identity) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, p Policy, id domain.Identity) error

func (f HandlerFunc) Handle(ctx context.Context, p Policy, id domain.Identity) error {
	return f(ctx, p, id)
}

var (
	ErrPolicyViolation    = errors.New("policy: violation")
	ErrUnregisteredPolicy = errors.New("policy: no handler registered")
	ErrRegistrySealed     = errors.New("policy: registry sealed")
)

// Violation is a denial. It matches ErrPolicyViolation.
type Violation struct {
	Policy Type
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("policy %s violated: %s", v.Policy, v.Reason)
}

func (v *Violation) Is(target error) bool {
	return target == ErrPolicyViolation
}

// Deny builds a Violation for p.
func Deny(p Policy, reason string) error {
	return &Violation{Policy: p.PolicyType(), Reason: reason}
}
