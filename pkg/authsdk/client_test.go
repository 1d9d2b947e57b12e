package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL)
	c.HTTPClient = srv.Client()
	return c
}

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authentication/refresh-tokens":
			ErrUnauthorized.WriteError(w)
		case "/authentication/sign-in":
			ErrInvalidRequest.WithDescription("email is required").WriteError(w)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>upstream down</html>"))
		}
	}))
	ctx := context.Background()

	_, err := c.Refresh(ctx, "rt")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NotErrorIs(t, err, ErrInvalidToken)

	_, err = c.SignIn(ctx, "", "pw", "")
	require.ErrorIs(t, err, ErrInvalidRequest)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "email is required", apiErr.Description)

	_, err = c.GetLiveness(ctx)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
}

func TestWithDescriptionDoesNotMutate(t *testing.T) {
	t.Parallel()
	e := ErrNotFound.WithDescription("user 7")
	require.Equal(t, "user 7", e.Description)
	require.Equal(t, "resource not found", ErrNotFound.Description)
	require.ErrorIs(t, e, ErrNotFound)
}

// tokenServer issues a fresh pair on every refresh and counts the calls.
type tokenServer struct {
	refreshes atomic.Int32
	lastToken atomic.Value
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/authentication/refresh-tokens":
		var req RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken == "revoked" {
			ErrUnauthorized.WriteError(w)
			return
		}
		n := s.refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{
			UserID:       7,
			AccessToken:  "access-" + string(rune('0'+n)),
			RefreshToken: "refresh-" + string(rune('0'+n)),
			TokenType:    TokenTypeBearer,
			ExpiresIn:    3600,
		})
	case "/users/7":
		s.lastToken.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserResponse{ID: 7, Email: "a@x.com", Role: "STANDARD"})
	default:
		http.NotFound(w, r)
	}
}

func TestSessionRefreshesExpiredToken(t *testing.T) {
	t.Parallel()
	ts := &tokenServer{}
	c := newTestClient(t, ts)
	ctx := context.Background()

	// An expiry of zero is already inside the refresh buffer.
	s := c.NewSessionFromTokens("stale", "refresh-0", 0)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			u, err := s.GetUser(ctx, 7)
			if assert.NoError(t, err) {
				assert.Equal(t, int64(7), u.ID)
			}
		})
	}
	wg.Wait()

	require.Equal(t, int32(1), ts.refreshes.Load())
	access, refresh := s.Tokens()
	require.Equal(t, "access-1", access)
	require.Equal(t, "refresh-1", refresh)
	require.Equal(t, "Bearer access-1", ts.lastToken.Load())
}

func TestSessionClearedOnRejectedRefresh(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &tokenServer{})
	ctx := context.Background()

	s := c.NewSessionFromTokens("stale", "revoked", 0)
	_, err := s.GetUser(ctx, 7)
	require.ErrorIs(t, err, ErrUnauthorized)

	access, refresh := s.Tokens()
	require.Empty(t, access)
	require.Empty(t, refresh)

	_, err = s.GetUser(ctx, 7)
	require.ErrorIs(t, err, ErrSessionClosed)
}
