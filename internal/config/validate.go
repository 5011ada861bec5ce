package config

import (
	"fmt"

	"github.com/JonasWIP/claude-code-server/internal/errors"
)

// Validate checks the configuration for invalid values.
// It is called once at load time so the rest of the code can trust the config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", errors.ErrConfigInvalid)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", errors.ErrConfigInvalid, cfg.Server.Port)
	}

	if cfg.Workspace.Dir == "" {
		return fmt.Errorf("%w: workspace.dir cannot be empty", errors.ErrConfigInvalid)
	}

	if cfg.Agent.Command == "" {
		return fmt.Errorf("%w: agent.command cannot be empty", errors.ErrConfigInvalid)
	}

	// An identity provider without a public credential cannot serve the login
	// exchange; catch the misconfiguration at startup rather than at request time.
	if cfg.Auth.URL != "" && cfg.Auth.AnonKey == "" {
		return fmt.Errorf("%w: auth.anon_key required when auth.url is set", errors.ErrConfigInvalid)
	}

	return nil
}
