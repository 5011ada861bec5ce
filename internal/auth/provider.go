// Package auth provides authentication and authorization for claude-code-server.
//
// Identity is external: tokens are resolved against a GoTrue-compatible
// identity provider and admin membership is decided by a provider-side RPC.
// This package only consumes the provider's decisions; it holds no user
// database of its own.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

// providerTimeout bounds every identity provider call. The workflow engine
// has no timeouts by contract; the auth gate sits on the request path and
// must not hang an HTTP handler on a dead provider.
const providerTimeout = 10 * time.Second

// User is the identity resolved from a bearer token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the credential bundle issued by a successful login.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Provider is an HTTP client for the external identity provider.
type Provider struct {
	baseURL    string
	anonKey    string
	serviceKey string
	client     *http.Client
}

// NewProvider creates a Provider for the given base URL and credentials.
func NewProvider(baseURL, anonKey, serviceKey string) *Provider {
	return &Provider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: providerTimeout},
	}
}

// Login exchanges email/password for a session via the password grant.
// Invalid credentials surface as ErrInvalidToken.
func (p *Provider) Login(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("%w: encode login request: %w", ccerrors.ErrAuthProvider, err)
	}

	resp, err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", p.anonKey, "", body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: login rejected with status %d", ccerrors.ErrInvalidToken, resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%w: decode session: %w", ccerrors.ErrAuthProvider, err)
	}
	return &session, nil
}

// GetUser resolves a bearer token to a user identity.
// A token the provider does not recognize surfaces as ErrInvalidToken.
func (p *Provider) GetUser(ctx context.Context, token string) (*User, error) {
	resp, err := p.do(ctx, http.MethodGet, "/auth/v1/user", p.anonKey, token, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", ccerrors.ErrInvalidToken, resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode user: %w", ccerrors.ErrAuthProvider, err)
	}
	return &user, nil
}

// IsAdmin queries the administrator-membership predicate for a user.
func (p *Provider) IsAdmin(ctx context.Context, userID string) (bool, error) {
	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return false, fmt.Errorf("%w: encode rpc request: %w", ccerrors.ErrAuthProvider, err)
	}

	resp, err := p.do(ctx, http.MethodPost, "/rest/v1/rpc/is_admin", p.serviceKey, p.serviceKey, body)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: admin rpc returned status %d", ccerrors.ErrAuthProvider, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: read rpc response: %w", ccerrors.ErrAuthProvider, err)
	}

	var isAdmin bool
	if err := json.Unmarshal(bytes.TrimSpace(raw), &isAdmin); err != nil {
		return false, fmt.Errorf("%w: decode rpc response: %w", ccerrors.ErrAuthProvider, err)
	}
	return isAdmin, nil
}

// Logout revokes the token at the provider. Best-effort by contract.
func (p *Provider) Logout(ctx context.Context, token string) error {
	resp, err := p.do(ctx, http.MethodPost, "/auth/v1/logout", p.anonKey, token, nil)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// do issues a provider request with the given apikey and optional bearer token.
func (p *Provider) do(ctx context.Context, method, path, apiKey, bearer string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ccerrors.ErrAuthProvider, err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ccerrors.ErrAuthProvider, err)
	}
	return resp, nil
}
