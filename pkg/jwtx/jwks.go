package jwtx

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// JWK represents a public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	// RSA
	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewRSAJWK builds a JWK for an RSA public key.
func NewRSAJWK(kid, use, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: use,
		Alg: alg,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// FetchJWKS downloads a key set published at url.
func FetchJWKS(ctx context.Context, client *http.Client, url string) (JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return JWKS{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return JWKS{}, fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JWKS{}, fmt.Errorf("jwtx: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var out JWKS
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return JWKS{}, fmt.Errorf("jwtx: decode jwks: %w", err)
	}
	return out, nil
}

// RemoteKeySet is a KeySet backed by a JWKS URL. Keys are fetched lazily
// and refetched when they go stale or an unknown kid shows up, but never
// more often than MinRefresh.
type RemoteKeySet struct {
	URL        string
	Client     *http.Client
	MaxAge     time.Duration
	MinRefresh time.Duration

	keys *KeySet

	mu        sync.Mutex
	fetchedAt time.Time
}

func NewRemoteKeySet(url string, client *http.Client) *RemoteKeySet {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &RemoteKeySet{
		URL:        url,
		Client:     client,
		MaxAge:     time.Hour,
		MinRefresh: 30 * time.Second,
		keys:       NewKeySet(),
	}
}

// Refresh fetches the key set now.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *RemoteKeySet) refreshLocked(ctx context.Context) error {
	jwks, err := FetchJWKS(ctx, r.Client, r.URL)
	if err != nil {
		return err
	}
	if err := r.keys.ResetFromJWKS(jwks); err != nil {
		return err
	}
	r.fetchedAt = time.Now()
	return nil
}

// Get implements KeyGetter.
func (r *RemoteKeySet) Get(kid string) (any, error) {
	r.mu.Lock()
	stale := r.fetchedAt.IsZero() || time.Since(r.fetchedAt) > r.MaxAge
	r.mu.Unlock()

	if !stale {
		if key, err := r.keys.Get(kid); err == nil {
			return key, nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetchedAt.IsZero() || time.Since(r.fetchedAt) >= r.MinRefresh {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.refreshLocked(ctx); err != nil && !r.keys.IsReady() {
			return nil, err
		}
	}

	key, err := r.keys.Get(kid)
	if err != nil {
		return nil, ErrUnknownKID
	}
	return key, nil
}
