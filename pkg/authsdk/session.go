package authsdk

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// refreshBuffer refreshes the access token this long before it expires.
const refreshBuffer = 30 * time.Second

var ErrSessionClosed = errors.New("authsdk: session has no refresh token")

// Session holds a token pair and performs bearer-authenticated calls. It is
// safe for concurrent use; concurrent callers share a single refresh.
type Session struct {
	client *Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(c *Client, tok *TokenResponse) *Session {
	return &Session{
		client:       c,
		accessToken:  tok.AccessToken,
		refreshToken: tok.RefreshToken,
		expiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - refreshBuffer),
	}
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// getValidToken returns the access token, rotating the pair when it is close
// to expiry. The mutex is held across the refresh: two refreshes with the same
// token would trip reuse detection and revoke the session.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrSessionClosed
	}

	tok, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			s.accessToken, s.refreshToken = "", ""
		}
		return "", err
	}

	s.accessToken = tok.AccessToken
	s.refreshToken = tok.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - refreshBuffer)
	return s.accessToken, nil
}

// GenerateTFA starts 2FA enrollment and returns the secret and otpauth URI.
// Status tells whether 2FA is already on or awaits ConfirmTFA.
func (s *Session) GenerateTFA(ctx context.Context) (*TFAEnrollmentResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/authentication/2fa/generate", nil, "application/json")
	if err != nil {
		return nil, err
	}
	var out TFAEnrollmentResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTFAQRCode starts 2FA enrollment and returns the QR code as PNG.
func (s *Session) GenerateTFAQRCode(ctx context.Context) ([]byte, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/authentication/2fa/generate", nil, "image/png")
	if err != nil {
		return nil, err
	}
	return readBody(resp, http.StatusOK)
}

// ConfirmTFA enables a pending enrollment with a code from the authenticator.
func (s *Session) ConfirmTFA(ctx context.Context, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/authentication/2fa/confirm", TFAConfirmRequest{Code: code}, "application/json")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, userPath(id), nil, "application/json")
	if err != nil {
		return nil, err
	}
	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, userPath(id), req, "application/json")
	if err != nil {
		return nil, err
	}
	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser needs an admin session.
func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, userPath(id), nil, "application/json")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}
