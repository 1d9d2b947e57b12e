package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/iamcore/internal/auth/policy"
	"github.com/aussiebroadwan/iamcore/internal/auth/service"
	"github.com/aussiebroadwan/iamcore/pkg/authsdk"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// writeError maps service and policy errors onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var violation *policy.Violation
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		// Reuse of a refresh token answers like any other bad credential;
		// only the trace records it.
		if service.IsRefreshReuse(err) {
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.Bool("iam.refresh_reuse", true))
		}
		authsdk.ErrUnauthorized.WriteError(w)
	case errors.As(err, &violation):
		authsdk.ErrPolicyViolation.WithDescription(violation.Reason).WriteError(w)
	case errors.Is(err, service.ErrConflict):
		authsdk.ErrConflict.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WithDescription(invalidRequestReason(err)).WriteError(w)
	default:
		attrs := []any{slog.Any("error", err)}
		if o, ok := oops.AsOops(err); ok {
			attrs = append(attrs, slog.Any("code", o.Code()))
		}
		log.Error("request failed", attrs...)
		authsdk.ErrServerError.WriteError(w)
	}
}

// invalidRequestReason extracts the text after the sentinel so the client
// learns which field was wrong.
func invalidRequestReason(err error) string {
	msg := err.Error()
	prefix := service.ErrInvalidRequest.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return authsdk.ErrInvalidRequest.Description
}

func writeBadBody(w http.ResponseWriter, err error) {
	authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
}
