package entry

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

// EnvConfig holds configuration for the environment variable source
type EnvConfig struct {
	// Prefix is prepended to every variable name, e.g. "EDMUNDS_" -> EDMUNDS_ENVIRONMENT_NAME
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// Validate always succeeds: an empty prefix is allowed
func (e EnvConfig) Validate() error {
	return nil
}

// CreateClient creates an EnvSource from this config.
func (e EnvConfig) CreateClient() (*EnvSource, error) {
	return NewEnvSource(e.Prefix), nil
}

// EnvSource resolves entries from environment variables. Useful for containers where the
// deployment injects the environment instead of publishing DNS records.
//
//	environment-name.edmunds.com  ->  ${PREFIX}ENVIRONMENT_NAME
//	url-prefix.edmunds.com        ->  ${PREFIX}URL_PREFIX
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new environment variable source
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

// Entry retrieves the environment variable mapped from name
func (e *EnvSource) Entry(_ context.Context, name string) (string, error) {
	key := e.VariableName(name)
	value, ok := os.LookupEnv(key)
	if !ok {
		log.Debug().Str("env_var", key).Msg("Environment variable not set")
		return "", notFound(name)
	}

	log.Debug().Str("env_var", key).Msg("Retrieved value from environment variable")
	return value, nil
}

// VariableName returns the environment variable consulted for an entry name
func (e *EnvSource) VariableName(name string) string {
	return e.prefix + envVarName(name)
}

// Name returns the source name
func (e *EnvSource) Name() string {
	return "Environment"
}
