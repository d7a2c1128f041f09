package entry

import (
	"context"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// VaultConfig holds configuration for connecting to HashiCorp Vault
type VaultConfig struct {
	Address   string `yaml:"address" toml:"address"`
	Token     string `yaml:"token" toml:"token"`
	Path      string `yaml:"path" toml:"path"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// Validate checks if the VaultConfig has all required fields set
func (v VaultConfig) Validate() error {
	if v.Address == "" {
		return errors.New("Vault address is required")
	}
	if v.Token == "" {
		return errors.New("Vault token is required")
	}
	if v.Path == "" {
		return errors.New("Vault path is required")
	}
	return nil
}

// CreateClient creates and configures a Vault client from this config.
func (v VaultConfig) CreateClient() (*api.Client, error) {
	if err := v.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Vault configuration")
	}

	config := api.DefaultConfig()
	config.Address = v.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}

	client.SetToken(v.Token)

	if v.Namespace != "" {
		client.SetNamespace(v.Namespace)
	}

	return client, nil
}

// VaultSource reads entries from a single Vault secret. Each entry is a key of that secret,
// named after the entry's short name ("environment-name", "url-prefix", ...).
// Supports both KV v1 and KV v2 secret engines.
type VaultSource struct {
	logical *api.Logical
	path    string
}

// NewVaultSource creates a new Vault-backed source
//
// Parameters:
//   - client: Configured Vault API client
//   - path: The Vault path holding the environment entries (e.g., "secret/data/environment")
func NewVaultSource(client *api.Client, path string) *VaultSource {
	return &VaultSource{
		logical: client.Logical(),
		path:    path,
	}
}

// Entry reads the secret and extracts the entry stored under its short name
func (v *VaultSource) Entry(ctx context.Context, name string) (string, error) {
	return v.Key(ctx, ShortName(name))
}

// Key reads the secret and extracts key, which may contain dots
func (v *VaultSource) Key(ctx context.Context, key string) (string, error) {
	secret, err := v.logical.ReadWithContext(ctx, v.path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from Vault path %q", v.path)
	}

	if secret == nil || secret.Data == nil {
		return "", errors.Wrapf(ErrNotFound, "no secret at Vault path %q", v.path)
	}

	data, err := vaultData(secret.Data)
	if err != nil {
		return "", err
	}

	if value, ok := data[key].(string); ok {
		log.Debug().
			Str("entry", key).
			Str("vault_path", v.path).
			Msg("Retrieved entry from Vault")
		return value, nil
	}

	return "", errors.Wrapf(ErrNotFound, "%q not in Vault at path %q", key, v.path)
}

// vaultData handles both KV v1 and KV v2 formats
func vaultData(raw map[string]interface{}) (map[string]interface{}, error) {
	if raw["data"] == nil {
		return raw, nil
	}
	if dataMap, ok := raw["data"].(map[string]interface{}); ok {
		return dataMap, nil
	}
	return nil, errors.New("unexpected data format in KV v2 secret")
}

// Name returns the source name
func (v *VaultSource) Name() string {
	return "Vault"
}
