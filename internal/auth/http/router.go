package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/policy"
	"github.com/aussiebroadwan/iamcore/internal/auth/service"
	"github.com/aussiebroadwan/iamcore/internal/auth/store"
	"github.com/aussiebroadwan/iamcore/pkg/httpx"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/aussiebroadwan/iamcore/api/iam" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits are the three tiers routes are assigned to.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
}

// Deps are the services the router dispatches to.
type Deps struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Registry *policy.Registry
	Store    store.Store

	// LedgerCheck reports ledger health on /readyz. Nil skips the check.
	LedgerCheck func(context.Context) error

	Limits  RateLimits
	Version string
	Logger  *slog.Logger
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	auth        *service.AuthService
	users       *service.UserService
	registry    *policy.Registry
	operations  map[policy.Operation]policy.Requirement
	store       store.Store
	ledgerCheck func(context.Context) error

	limits       RateLimits
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
}

// NewRouter fails when an operation names a policy the registry cannot
// decide, so a misconfigured route never serves traffic.
func NewRouter(d Deps) (*Router, error) {
	if err := policy.CheckOperations(d.Registry, policy.Operations); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		auth:         d.Auth,
		users:        d.Users,
		registry:     d.Registry,
		operations:   policy.Operations,
		store:        d.Store,
		ledgerCheck:  d.LedgerCheck,
		limits:       d.Limits,
		buildVersion: d.Version,
		startTime:    time.Now(),
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		otelhttp.NewMiddleware("iamcore"),
		slogx.HTTPMiddleware(r.logger),
	}
	return r, nil
}

func (r *Router) ApplyRoutes() {
	r.registerAuthentication()
	r.registerTFA()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			iamcore API
//	@version		0.1.0
//	@description	Sign-up, sign-in with optional TOTP step-up, refresh token rotation with reuse detection, and user management.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs. A refresh token can be used once; presenting it again revokes the session.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/iamcore
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h for pattern behind the authorization of op. Extra
// middleware runs after authorization, so per-subject limits see the caller.
func (r *Router) handle(pattern string, op policy.Operation, h http.HandlerFunc, mws ...httpx.Middleware) {
	chain := append([]httpx.Middleware{r.authorize(op)}, mws...)
	r.Mux.Handle(pattern, httpx.Chain(h, chain...))
}

func (r *Router) registerAuthentication() {
	h := &AuthenticationHandler{Auth: r.auth}

	// Credential endpoints: strict limit by IP against brute force.
	r.handle("POST /authentication/sign-up", policy.OpSignUp, h.HandleSignUp,
		httpx.RateLimitByIP(r.limits.Strict))
	r.handle("POST /authentication/sign-in", policy.OpSignIn, h.HandleSignIn,
		httpx.RateLimitByIP(r.limits.Strict))
	r.handle("POST /authentication/google", policy.OpGoogleSignIn, h.HandleGoogle,
		httpx.RateLimitByIP(r.limits.Strict))

	r.handle("POST /authentication/refresh-tokens", policy.OpRefresh, h.HandleRefresh,
		httpx.RateLimitByIP(r.limits.Moderate))
}

func (r *Router) registerTFA() {
	h := &TFAHandler{Auth: r.auth}

	r.handle("POST /authentication/2fa/generate", policy.OpTFAGenerate, h.HandleGenerate,
		httpx.RateLimitBySubject(r.limits.Moderate))

	// Code guessing is limited per user.
	r.handle("POST /authentication/2fa/confirm", policy.OpTFAConfirm, h.HandleConfirm,
		httpx.RateLimitBySubject(r.limits.Strict))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.users}

	r.handle("GET /users/{id}", policy.OpGetUser, h.HandleGet,
		httpx.RateLimitBySubject(r.limits.Lenient))
	r.handle("PUT /users/{id}", policy.OpUpdateUser, h.HandleUpdate,
		httpx.RateLimitBySubject(r.limits.Moderate))
	r.handle("DELETE /users/{id}", policy.OpDeleteUser, h.HandleDelete,
		httpx.RateLimitBySubject(r.limits.Moderate))
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.ledgerCheck),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}

func (r *Router) requirement(op policy.Operation) policy.Requirement {
	req, ok := r.operations[op]
	if !ok {
		panic(fmt.Sprintf("http: operation %q missing from the operations table", op))
	}
	return req
}
