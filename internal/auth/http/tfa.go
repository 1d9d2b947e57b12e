package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/iamcore/internal/auth/otp"
	"github.com/aussiebroadwan/iamcore/internal/auth/service"
	"github.com/aussiebroadwan/iamcore/pkg/authsdk"
	"github.com/aussiebroadwan/iamcore/pkg/httpx"
	"github.com/aussiebroadwan/iamcore/pkg/slogx"
)

// TFAStatusHeader reports the enrollment status on the PNG response, which
// has no JSON body to carry it.
const TFAStatusHeader = "X-TFA-Status"

// TFAHandler serves 2FA enrollment for the authenticated caller.
type TFAHandler struct {
	Auth *service.AuthService
}

// HandleGenerate handles POST /authentication/2fa/generate
//
//	@Summary		Start 2FA enrollment
//	@Description	Generates a TOTP secret for the caller. Returns a QR code PNG, or JSON with the otpauth URI and secret when Accept is application/json.
//	@Description	Depending on configuration the secret is enabled immediately or waits for /authentication/2fa/confirm.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Produce		png
//	@Produce		json
//	@Success		200	{object}	authsdk.TFAEnrollmentResponse
//	@Failure		401	{object}	authsdk.APIError	"Invalid or missing access token"
//	@Router			/authentication/2fa/generate [post].
func (h *TFAHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := IdentityFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	enr, status, err := h.Auth.EnrollTFA(ctx, id.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.TFAEnrollmentResponse{
			URI:    enr.URI,
			Secret: enr.Secret,
			Status: string(status),
		})
		return
	}

	png, err := h.Auth.OTP.QRCode(enr.URI, otp.DefaultQRSize)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to render QR code", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set(TFAStatusHeader, string(status))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandleConfirm handles POST /authentication/2fa/confirm
//
//	@Summary		Confirm 2FA enrollment
//	@Description	Enables the pending TOTP secret once a code generated from it verifies.
//	@Tags			2FA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.TFAConfirmRequest	true	"TOTP code"
//	@Success		204
//	@Failure		400	{object}	authsdk.APIError	"No pending enrollment"
//	@Failure		401	{object}	authsdk.APIError	"Wrong code or invalid access token"
//	@Router			/authentication/2fa/confirm [post].
func (h *TFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := IdentityFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.TFAConfirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	if err := h.Auth.ConfirmTFA(ctx, id.Email, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
