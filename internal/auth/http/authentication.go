package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/iamcore/internal/auth/domain"
	"github.com/aussiebroadwan/iamcore/internal/auth/service"
	"github.com/aussiebroadwan/iamcore/pkg/authsdk"
	"github.com/aussiebroadwan/iamcore/pkg/httpx"
)

// AuthenticationHandler serves the public credential endpoints.
type AuthenticationHandler struct {
	Auth *service.AuthService
}

// HandleSignUp handles POST /authentication/sign-up
//
//	@Summary		Register a user
//	@Description	Creates a STANDARD user with a local password (at least 10 characters). No tokens are issued.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignUpRequest	true	"Email and password"
//	@Success		201		{object}	authsdk.SignUpResponse
//	@Failure		400		{object}	authsdk.APIError	"Invalid email or weak password"
//	@Failure		409		{object}	authsdk.APIError	"Email already registered"
//	@Router			/authentication/sign-up [post].
func (h *AuthenticationHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	id, err := h.Auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.SignUpResponse{UserID: id})
}

// HandleSignIn handles POST /authentication/sign-in
//
//	@Summary		Sign in with email and password
//	@Description	Returns an access and refresh token pair. Users with 2FA enabled must send tfa_code.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignInRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.APIError	"Invalid credentials or 2FA code"
//	@Failure		429		{object}	authsdk.APIError	"Rate limited"
//	@Router			/authentication/sign-in [post].
func (h *AuthenticationHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.Auth.SignIn(r.Context(), req.Email, req.Password, req.TFACode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res.UserID, res.Tokens))
}

// HandleRefresh handles POST /authentication/refresh-tokens
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new pair. Each refresh token works once; presenting a used one revokes the session.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.APIError	"Invalid, expired or reused refresh token"
//	@Router			/authentication/refresh-tokens [post].
func (h *AuthenticationHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(0, pair))
}

// HandleGoogle handles POST /authentication/google
//
//	@Summary		Sign in with Google
//	@Description	Verifies a Google ID token, creating a local user on first sign-in, and returns a token pair.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.GoogleSignInRequest	true	"Google ID token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.APIError	"Token rejected"
//	@Failure		409		{object}	authsdk.APIError	"Email belongs to another user"
//	@Router			/authentication/google [post].
func (h *AuthenticationHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	var req authsdk.GoogleSignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.Auth.SignInWithGoogle(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res.UserID, res.Tokens))
}

func tokenResponse(userID int64, pair domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		UserID:           userID,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        authsdk.TokenTypeBearer,
		ExpiresIn:        secondsUntil(pair.AccessExpiresAt),
		RefreshExpiresIn: secondsUntil(pair.RefreshExpiresAt),
	}
}

func secondsUntil(t time.Time) int {
	return max(int(time.Until(t).Round(time.Second).Seconds()), 0)
}
