package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/policy"
	"github.com/aussiebroadwan/iamcore/pkg/authsdk"
	"github.com/aussiebroadwan/iamcore/pkg/httpx"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var policyDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iam_policy_denials_total",
	Help: "Requests denied by an authorization policy, by operation and policy",
}, []string{"operation", "policy"})

type identityKey struct{}

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller authenticated by the bearer token.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok && !id.IsZero()
}

// authorize enforces op's entry in the operations table: bearer
// authentication when required, then the policies in order. The {id} path
// value, when present, is the resource owner policies see.
func (r *Router) authorize(op policy.Operation) httpx.Middleware {
	requirement := r.requirement(op)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			var id domain.Identity

			if requirement.Auth == policy.AuthBearer {
				token, ok := httpx.BearerToken(req)
				if !ok {
					httpx.WriteBearerChallenge(w, authsdk.ErrorCodeInvalidToken, "missing bearer token")
					authsdk.ErrInvalidToken.WriteError(w)
					return
				}
				verified, err := r.auth.Tokens.VerifyAccess(token)
				if err != nil {
					slogx.FromContext(ctx).Info("access token rejected", "error", err)
					httpx.WriteBearerChallenge(w, authsdk.ErrorCodeInvalidToken, "token invalid or expired")
					authsdk.ErrInvalidToken.WriteError(w)
					return
				}
				id = verified
				ctx = withIdentity(ctx, id)
				ctx = httpx.WithSubject(ctx, id.SubjectString())
				ctx = slogx.With(ctx, "user_id", id.Subject)
			}

			if len(requirement.Policies) > 0 {
				if owner, ok := pathUserID(req); ok {
					ctx = policy.WithResourceOwner(ctx, owner)
				}
				if err := r.registry.Evaluate(ctx, id, requirement.Policies...); err != nil {
					var v *policy.Violation
					if errors.As(err, &v) {
						policyDenials.WithLabelValues(string(op), string(v.Policy)).Inc()
					}
					writeError(w, req.WithContext(ctx), err)
					return
				}
			}

			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// pathUserID parses the {id} wildcard of /users/{id}.
func pathUserID(req *http.Request) (int64, bool) {
	raw := req.PathValue("id")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
