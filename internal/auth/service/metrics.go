package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/aussiebroadwan/iamcore/internal/auth/service")

var (
	// signIns counts sign-in attempts by method and result.
	signIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iam_sign_in_total",
		Help: "Sign-in attempts by method (password, google) and result",
	}, []string{"method", "result"})

	// refreshes counts refresh attempts by result.
	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iam_refresh_total",
		Help: "Refresh token exchanges by result (rotated, reused, rejected)",
	}, []string{"result"})

	// refreshReuse is the theft signal: a rotated or revoked refresh token
	// was presented again.
	refreshReuse = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iam_refresh_reuse_total",
		Help: "Refresh tokens presented after rotation or revocation",
	})

	housekeepingSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iam_housekeeping_swept_total",
		Help: "Expired ledger entries removed by housekeeping",
	})
)

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
