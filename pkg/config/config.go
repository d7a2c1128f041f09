// Package config loads the envtoken configuration file.
//
// The file is YAML or TOML, chosen by extension. Top-level sections are kept raw and decoded on
// demand with Get, which expands ${prefix:key} references through the resolver registry,
// validates the section and returns a private deep copy.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/animalet/envtoken-go/internal/expansion"
	"github.com/animalet/envtoken-go/internal/snapshot"
	"github.com/animalet/envtoken-go/pkg/resolver"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Format of a configuration file
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Validatable is implemented by every configuration section.
type Validatable interface {
	Validate() error
}

// ClientFactory is a section that can build the client it configures, e.g.
// entry.VaultConfig builds an *api.Client and entry.RedisConfig a *redis.Pool.
type ClientFactory[T any] interface {
	Validatable
	CreateClient() (T, error)
}

// Config holds the raw sections of a configuration file.
type Config struct {
	file     string
	sections map[string]any
	resolver expansion.Resolver
}

// NewConfig reads file, picking the format from its extension.
func NewConfig(file string) (*Config, error) {
	format, err := FormatOf(file)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file %q", file)
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration file %q", file)
	}
	cfg.file = file

	log.Debug().Str("file", file).Strs("sections", cfg.Keys()).Msg("Configuration loaded")
	return cfg, nil
}

// FormatOf maps a file extension to a Format.
func FormatOf(file string) (Format, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", errors.Errorf("unsupported configuration file extension %q", filepath.Ext(file))
}

// Parse decodes configuration data. Empty data is an empty configuration.
func Parse(data []byte, format Format) (*Config, error) {
	sections := map[string]any{}
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &sections)
	case TOML:
		err = toml.Unmarshal(data, &sections)
	default:
		return nil, errors.Errorf("unsupported configuration format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", format)
	}
	if sections == nil {
		sections = map[string]any{}
	}
	return &Config{sections: sections, resolver: resolver.Global}, nil
}

// File is the path the configuration was read from, empty for parsed data.
func (c *Config) File() string { return c.file }

// WithResolver replaces the registry used to expand references.
func (c *Config) WithResolver(r expansion.Resolver) *Config {
	c.resolver = r
	return c
}

// Has reports whether section key is present.
func (c *Config) Has(key string) bool {
	v, ok := c.sections[key]
	return ok && v != nil
}

// Keys lists the top-level sections in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.sections))
	for k := range c.sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get decodes section key into a T. It returns (nil, nil) when the section is absent.
func Get[T Validatable](c *Config, key string) (*T, error) {
	if !c.Has(key) {
		return nil, nil
	}

	data, err := yaml.Marshal(c.sections[key])
	if err != nil {
		return nil, errors.Wrapf(err, "error marshalling section %q", key)
	}

	var partial T
	if err = yaml.Unmarshal(data, &partial); err != nil {
		return nil, errors.Wrapf(err, "error decoding section %q", key)
	}

	if err = expansion.ExpandVariables(c.resolver, &partial); err != nil {
		return nil, errors.Wrapf(err, "error expanding section %q", key)
	}

	if err = partial.Validate(); err != nil {
		return nil, errors.Wrapf(err, "section %q is invalid", key)
	}

	return snapshot.Copy(&partial)
}

// GetClient decodes section key and builds its client. It returns (nil, nil) when the section
// is absent.
func GetClient[T ClientFactory[C], C any](c *Config, key string) (*C, error) {
	cfg, err := Get[T](c, key)
	if err != nil || cfg == nil {
		return nil, err
	}

	client, err := (*cfg).CreateClient()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create client for section %q", key)
	}
	return &client, nil
}
