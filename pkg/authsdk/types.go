package authsdk

// TokenTypeBearer is the only token type the service issues.
const TokenTypeBearer = "Bearer"

// 2FA enrollment states reported by the generate endpoint.
const (
	TFAStatusEnabled = "enabled"
	TFAStatusPending = "pending_confirmation"
)

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpResponse struct {
	UserID int64 `json:"user_id"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// TFACode is required once the user has two-factor enabled.
	TFACode string `json:"tfa_code,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleSignInRequest struct {
	// Token is the Google ID token obtained by the client.
	Token string `json:"token"`
}

// TokenResponse is returned by sign-in, refresh and Google sign-in. UserID is
// omitted on refresh.
type TokenResponse struct {
	UserID           int64  `json:"user_id,omitempty"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// TFAEnrollmentResponse is the JSON form of POST /authentication/2fa/generate.
type TFAEnrollmentResponse struct {
	URI    string `json:"uri"`
	Secret string `json:"secret"`
	Status string `json:"status"`
}

type TFAConfirmRequest struct {
	Code string `json:"code"`
}

type UserResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	TFAEnabled bool   `json:"tfa_enabled"`
	Role       string `json:"role"`
}

// UpdateUserRequest changes the non-nil fields. Role changes need an admin.
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Ledger   string `json:"ledger"`
}
