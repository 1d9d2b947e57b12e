package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
)

// Registry maps policy types to handlers. It is filled at startup, sealed,
// and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Type]Handler
	sealed   bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Type]Handler)}
}

// NewDefaultRegistry returns a registry holding the built-in policies.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(TypeOnlyAdmin, OnlyAdminHandler{})
	_ = r.Register(TypeSelfOrAdmin, SelfOrAdminHandler{})
	return r
}

// Register binds h to t, replacing any previous handler.
func (r *Registry) Register(t Type, h Handler) error {
	if t == "" || h == nil {
		return fmt.Errorf("policy: register needs a type and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}
	r.handlers[t] = h
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// lookup resolves p's handler. A nil policy has none.
func (r *Registry) lookup(p Policy) (Handler, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil policy", ErrUnregisteredPolicy)
	}
	h, ok := r.handler(p.PolicyType())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredPolicy, p.PolicyType())
	}
	return h, nil
}

func (r *Registry) handler(t Type) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Check reports the first policy without a handler. Used at startup.
func (r *Registry) Check(policies ...Policy) error {
	for _, p := range policies {
		if _, err := r.lookup(p); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs policies in order and stops at the first failure.
func (r *Registry) Evaluate(ctx context.Context, id domain.Identity, policies ...Policy) error {
	for _, p := range policies {
		h, err := r.lookup(p)
		if err != nil {
			return err
		}
		if err := h.Handle(ctx, p, id); err != nil {
			return err
		}
	}
	return nil
}
