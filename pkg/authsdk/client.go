package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to the public endpoints and opens Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SignUp registers a user and returns its id. No tokens are issued.
func (c *Client) SignUp(ctx context.Context, email, password string) (int64, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/authentication/sign-up", SignUpRequest{Email: email, Password: password})
	if err != nil {
		return 0, err
	}
	var out SignUpResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

// SignIn exchanges credentials (and a TOTP code when 2FA is on) for tokens.
func (c *Client) SignIn(ctx context.Context, email, password, tfaCode string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "/authentication/sign-in", SignInRequest{Email: email, Password: password, TFACode: tfaCode})
}

// SignInWithGoogle exchanges a Google ID token for tokens, creating the user
// on first use.
func (c *Client) SignInWithGoogle(ctx context.Context, idToken string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "/authentication/google", GoogleSignInRequest{Token: idToken})
}

// Refresh rotates a refresh token. The presented token is dead afterwards;
// presenting it again revokes the whole session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "/authentication/refresh-tokens", RefreshRequest{RefreshToken: refreshToken})
}

func (c *Client) tokenRequest(ctx context.Context, path string, body any) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate signs in and wraps the tokens in a Session.
func (c *Client) Authenticate(ctx context.Context, email, password, tfaCode string) (*Session, error) {
	tok, err := c.SignIn(ctx, email, password, tfaCode)
	if err != nil {
		return nil, err
	}
	return newSession(c, tok), nil
}

// NewSessionFromTokens resumes a session from stored tokens.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// GetLiveness calls /livez.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness calls /readyz. A degraded service answers 503, which is
// returned as an *APIError.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
