package config

import (
	stderrors "errors"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JonasWIP/claude-code-server/internal/constants"
	"github.com/JonasWIP/claude-code-server/internal/errors"
)

// newViperInstance creates a new Viper instance with standard configuration.
// This includes the environment variable prefix (CCS_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers built-in defaults on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", constants.DefaultHost)
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("workspace.dir", constants.DefaultWorkspaceDir)
	v.SetDefault("agent.command", constants.DefaultAgentCommand)
	v.SetDefault("agent.work_dir", "")
	v.SetDefault("auth.url", "")
	v.SetDefault("auth.service_key", "")
	v.SetDefault("auth.anon_key", "")
	v.SetDefault("repos.list_command", constants.DefaultRepoListCommand)
}

// viperDecoderOption returns the decoder configuration used when unmarshaling.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error. Missing config files are expected; env-only deployments are
// fully supported.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (CCS_* prefix; a .env file in the working
//     directory is merged into the process environment first)
//  2. config.yaml in the working directory
//  3. Built-in defaults
//
// The function returns an error only for actual configuration problems,
// not for missing config or .env files.
func Load() (*Config, error) {
	// Best-effort .env load; absence is the common case in production.
	_ = godotenv.Load()

	v := newViperInstance()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}
