// Package config provides configuration management for claude-code-server.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. Environment variables (CCS_* prefix, plus a .env file via godotenv)
//  2. Config file (config.yaml in the working directory, optional)
//  3. Built-in defaults
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import other internal packages.
package config

// Config is the root configuration structure for claude-code-server.
type Config struct {
	// Server contains HTTP listener settings.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Workspace contains settings for the repository workspace root.
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`

	// Agent contains settings for the external coding agent invocation.
	Agent AgentConfig `yaml:"agent" mapstructure:"agent"`

	// Auth contains settings for the external identity provider.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Repos contains settings for the repository listing endpoint.
	Repos ReposConfig `yaml:"repos" mapstructure:"repos"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the listen address. Default: "0.0.0.0".
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the listen port. Default: 3000.
	Port int `yaml:"port" mapstructure:"port"`
}

// WorkspaceConfig contains settings for the workspace root directory.
// Working copies are created under Dir; per-task log files land in Dir/logs.
type WorkspaceConfig struct {
	// Dir is the root directory for repository working copies.
	// Default: "workspace".
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AgentConfig contains settings for the external coding agent.
type AgentConfig struct {
	// Command is the shell command invoking the agent. The task prompt is
	// piped on stdin, and the agent's combined output is captured.
	// Default: "claude -p --dangerously-skip-permissions".
	Command string `yaml:"command" mapstructure:"command"`

	// WorkDir is an optional subdirectory of the working copy in which the
	// agent runs. Empty means the working copy root.
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`
}

// AuthConfig contains settings for the external identity provider.
//
// When URL is empty the Auth Gate degrades to allow-all: every request is
// treated as an authenticated admin. This is an explicit operational bypass
// for trusted single-tenant deployments and is logged loudly at startup.
type AuthConfig struct {
	// URL is the identity provider base URL (e.g. a Supabase project URL).
	URL string `yaml:"url" mapstructure:"url"`

	// ServiceKey is the privileged credential used for the admin-membership
	// predicate call.
	ServiceKey string `yaml:"service_key" mapstructure:"service_key"`

	// AnonKey is the public credential used for the login token exchange.
	AnonKey string `yaml:"anon_key" mapstructure:"anon_key"`
}

// ReposConfig contains settings for the repository listing endpoint.
type ReposConfig struct {
	// ListCommand is the external command whose stdout (JSON) is served by
	// GET /repos. Default: "gh repo list --json name,url --limit 100".
	ListCommand string `yaml:"list_command" mapstructure:"list_command"`
}

// AuthEnabled reports whether an identity provider is configured.
// When false the server runs with the documented allow-all bypass.
func (c *Config) AuthEnabled() bool {
	return c.Auth.URL != ""
}
