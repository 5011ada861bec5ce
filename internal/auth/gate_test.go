package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonasWIP/claude-code-server/internal/config"
	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

// fakeProvider is an httptest identity provider with a single known user.
type fakeProvider struct {
	srv       *httptest.Server
	adminIDs  map[string]bool
	rpcBroken bool
}

const (
	validToken = "valid-token"
	userID     = "user-1"
	userEmail  = "admin@example.com"
	password   = "hunter2"
)

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	f := &fakeProvider{adminIDs: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: userID, Email: userEmail})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != userEmail || creds["password"] != password {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(Session{
			AccessToken:  validToken,
			RefreshToken: "refresh",
			ExpiresIn:    3600,
			User:         User{ID: userID, Email: userEmail},
		})
	})
	mux.HandleFunc("/rest/v1/rpc/is_admin", func(w http.ResponseWriter, r *http.Request) {
		if f.rpcBroken {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(f.adminIDs[req["user_id"]])
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeProvider) gate() *Gate {
	return NewGate(config.AuthConfig{
		URL:        f.srv.URL,
		AnonKey:    "anon",
		ServiceKey: "service",
	}, zerolog.Nop())
}

func TestGate_BypassWhenUnconfigured(t *testing.T) {
	t.Parallel()

	g := NewGate(config.AuthConfig{}, zerolog.Nop())

	assert.False(t, g.Enabled())

	d := g.Verify(context.Background(), "")
	assert.True(t, d.Valid)
	assert.True(t, d.IsAdmin)
}

func TestGate_Verify_MissingToken(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	d := f.gate().Verify(context.Background(), "")

	assert.False(t, d.Valid)
	assert.False(t, d.IsAdmin)
	assert.ErrorIs(t, d.Err, ccerrors.ErrInvalidToken)
}

func TestGate_Verify_InvalidToken(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	d := f.gate().Verify(context.Background(), "garbage")

	assert.False(t, d.Valid)
	assert.ErrorIs(t, d.Err, ccerrors.ErrInvalidToken)
}

func TestGate_Verify_AdminUser(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	f.adminIDs[userID] = true

	d := f.gate().Verify(context.Background(), validToken)

	assert.True(t, d.Valid)
	assert.True(t, d.IsAdmin)
	require.NotNil(t, d.User)
	assert.Equal(t, userEmail, d.User.Email)
}

func TestGate_Verify_ValidNonAdmin(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)

	d := f.gate().Verify(context.Background(), validToken)

	assert.True(t, d.Valid)
	assert.False(t, d.IsAdmin)
}

// TestGate_Verify_AdminCheckFailureFailsClosed verifies the split failure
// policy: token validity is preserved, privilege is denied.
func TestGate_Verify_AdminCheckFailureFailsClosed(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	f.adminIDs[userID] = true
	f.rpcBroken = true

	d := f.gate().Verify(context.Background(), validToken)

	assert.True(t, d.Valid)
	assert.False(t, d.IsAdmin)
	assert.Error(t, d.Err)
}

func TestGate_Login_Admin(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	f.adminIDs[userID] = true

	session, err := f.gate().Login(context.Background(), userEmail, password)

	require.NoError(t, err)
	assert.Equal(t, validToken, session.AccessToken)
	assert.Equal(t, 3600, session.ExpiresIn)
	assert.Equal(t, userEmail, session.User.Email)
}

func TestGate_Login_BadCredentials(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	f.adminIDs[userID] = true

	_, err := f.gate().Login(context.Background(), userEmail, "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrInvalidToken)
}

// TestGate_Login_NonAdminRejected verifies a valid-but-non-admin login never
// receives a session credential.
func TestGate_Login_NonAdminRejected(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)

	session, err := f.gate().Login(context.Background(), userEmail, password)

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrNotAdmin)
	assert.Nil(t, session)
}

func TestGate_Login_UnconfiguredProvider(t *testing.T) {
	t.Parallel()

	g := NewGate(config.AuthConfig{}, zerolog.Nop())

	_, err := g.Login(context.Background(), userEmail, password)

	require.Error(t, err)
	assert.ErrorIs(t, err, ccerrors.ErrAuthProvider)
}

func TestGate_Logout_NeverFails(t *testing.T) {
	t.Parallel()

	f := newFakeProvider(t)
	g := f.gate()

	// Valid and garbage tokens alike: logout is best-effort.
	g.Logout(context.Background(), validToken)
	g.Logout(context.Background(), "garbage")
	g.Logout(context.Background(), "")
}
