package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JonasWIP/claude-code-server/internal/config"
	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

// Decision is the gate's answer for one bearer token.
type Decision struct {
	// Valid reports whether the token resolved to a genuine identity.
	Valid bool

	// IsAdmin reports whether that identity holds the administrator claim.
	IsAdmin bool

	// User is the resolved identity, nil when Valid is false or auth is bypassed.
	User *User

	// Err carries the provider error behind a deny, for logging only.
	Err error
}

// Gate validates bearer credentials against the identity provider and the
// administrator-membership predicate.
//
// When no identity provider is configured the gate degrades to allow-all:
// every request counts as an authenticated admin. This is an explicit
// operational bypass for trusted single-tenant deployments, not a default;
// it is logged loudly at construction.
type Gate struct {
	provider *Provider
	logger   zerolog.Logger
}

// NewGate creates a Gate from the auth configuration.
func NewGate(cfg config.AuthConfig, logger zerolog.Logger) *Gate {
	g := &Gate{logger: logger.With().Str("component", "auth").Logger()}
	if cfg.URL == "" {
		g.logger.Warn().Msg("no identity provider configured - authentication bypass active, all requests are treated as admin")
		return g
	}
	g.provider = NewProvider(cfg.URL, cfg.AnonKey, cfg.ServiceKey)
	g.logger.Info().Str("provider", cfg.URL).Msg("authentication enforced")
	return g
}

// Enabled reports whether an identity provider is configured.
func (g *Gate) Enabled() bool {
	return g.provider != nil
}

// Verify resolves a bearer token to an allow/deny decision.
//
// Token validity fails open only in the documented unconfigured-provider
// bypass. The privilege check fails closed: if the admin predicate call
// itself errors, the token is still reported valid but without admin rights.
func (g *Gate) Verify(ctx context.Context, token string) Decision {
	if !g.Enabled() {
		return Decision{Valid: true, IsAdmin: true}
	}

	if token == "" {
		return Decision{Err: ccerrors.ErrInvalidToken}
	}

	user, err := g.provider.GetUser(ctx, token)
	if err != nil {
		g.logger.Debug().Err(err).Msg("token rejected")
		return Decision{Err: err}
	}

	isAdmin, err := g.provider.IsAdmin(ctx, user.ID)
	if err != nil {
		// The token is genuine; only the privilege lookup failed.
		g.logger.Warn().Err(err).Str("user_id", user.ID).Msg("admin check failed, denying privilege")
		return Decision{Valid: true, IsAdmin: false, User: user, Err: err}
	}

	return Decision{Valid: true, IsAdmin: isAdmin, User: user}
}

// Login exchanges credentials for a session. A valid-but-non-admin login is
// rejected outright with ErrNotAdmin; no session credential reaches the caller.
func (g *Gate) Login(ctx context.Context, email, password string) (*Session, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("%w: no identity provider configured", ccerrors.ErrAuthProvider)
	}

	session, err := g.provider.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	isAdmin, err := g.provider.IsAdmin(ctx, session.User.ID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, fmt.Errorf("%w: %s", ccerrors.ErrNotAdmin, session.User.Email)
	}

	return session, nil
}

// Logout revokes the token. Failures are logged and swallowed; logout always
// succeeds from the caller's perspective.
func (g *Gate) Logout(ctx context.Context, token string) {
	if !g.Enabled() || token == "" {
		return
	}
	if err := g.provider.Logout(ctx, token); err != nil {
		g.logger.Debug().Err(err).Msg("logout call failed")
	}
}
