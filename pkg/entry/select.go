package entry

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Source types accepted in SourceConfig.
const (
	TypeAuto      = "auto"
	TypeDNS       = "dns"
	TypeFile      = "file"
	TypeEnv       = "env"
	TypeVault     = "vault"
	TypeAWS       = "aws"
	TypeRedis     = "redis"
	TypeMemcached = "memcached"
)

// SourceConfig selects where entries are read from.
//
//	source:
//	  type: auto        # auto | dns | file | env | vault | aws | redis | memcached
//	  overrides: [env]  # consulted before the primary source, first hit wins
type SourceConfig struct {
	Type      string   `yaml:"type" toml:"type"`
	Overrides []string `yaml:"overrides" toml:"overrides"`
}

// Validate checks that every referenced source type is known
func (s SourceConfig) Validate() error {
	if !knownType(s.primary()) {
		return errors.Errorf("unknown entry source type %q", s.Type)
	}
	for _, t := range s.Overrides {
		if !knownType(strings.ToLower(t)) || strings.EqualFold(t, TypeAuto) {
			return errors.Errorf("invalid override source type %q", t)
		}
	}
	return nil
}

func (s SourceConfig) primary() string {
	if s.Type == "" {
		return TypeAuto
	}
	return strings.ToLower(s.Type)
}

func knownType(t string) bool {
	switch t {
	case TypeAuto, TypeDNS, TypeFile, TypeEnv, TypeVault, TypeAWS, TypeRedis, TypeMemcached:
		return true
	}
	return false
}

// Backends carries the optional per-backend configuration sections. A nil section means the
// backend is configured with its defaults where it has any (dns, file, env) and unavailable
// otherwise (vault, aws, redis, memcached).
type Backends struct {
	DNS       *DNSConfig
	File      *FileConfig
	Env       *EnvConfig
	Vault     *VaultConfig
	AWS       *AWSConfig
	Redis     *RedisConfig
	Memcached *MemcachedConfig
}

// Open builds the Source described by cfg. It runs once at startup: the "auto" type probes for
// the properties file and falls back to DNS when it is absent.
//
// The returned close function releases pooled connections and is never nil.
func Open(cfg SourceConfig, backends Backends) (Source, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	types := make([]string, 0, len(cfg.Overrides)+1)
	for _, t := range cfg.Overrides {
		types = append(types, strings.ToLower(t))
	}
	types = append(types, cfg.primary())

	sources := make([]Source, 0, len(types))
	for _, t := range types {
		source, closer, err := open(t, backends)
		if err != nil {
			_ = closeAll()
			return nil, nil, errors.Wrapf(err, "failed to open %s entry source", t)
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		sources = append(sources, source)
	}

	if len(sources) == 1 {
		log.Info().Str("source", sources[0].Name()).Msg("Using entry source")
		return sources[0], closeAll, nil
	}

	chain := NewChain(sources...)
	log.Info().Str("source", chain.Name()).Msg("Using entry source")
	return chain, closeAll, nil
}

func open(t string, b Backends) (Source, func() error, error) {
	switch t {
	case TypeAuto:
		file := valueOr(b.File)
		if PropertiesFileExists(file.path()) {
			log.Debug().Str("file", file.path()).Msg("Properties file present, reading environment from it")
			s, err := file.CreateClient()
			return s, nil, err
		}
		s, err := valueOr(b.DNS).CreateClient()
		return s, nil, err
	case TypeDNS:
		s, err := valueOr(b.DNS).CreateClient()
		return s, nil, err
	case TypeFile:
		s, err := valueOr(b.File).CreateClient()
		return s, nil, err
	case TypeEnv:
		s, err := valueOr(b.Env).CreateClient()
		return s, nil, err
	case TypeVault:
		if b.Vault == nil {
			return nil, nil, errors.New("vault configuration is missing")
		}
		client, err := b.Vault.CreateClient()
		if err != nil {
			return nil, nil, err
		}
		return NewVaultSource(client, b.Vault.Path), nil, nil
	case TypeAWS:
		if b.AWS == nil {
			return nil, nil, errors.New("aws configuration is missing")
		}
		client, err := b.AWS.CreateClient()
		if err != nil {
			return nil, nil, err
		}
		return NewAWSSource(client, b.AWS.SecretName), nil, nil
	case TypeRedis:
		if b.Redis == nil {
			return nil, nil, errors.New("redis configuration is missing")
		}
		pool, err := b.Redis.CreateClient()
		if err != nil {
			return nil, nil, err
		}
		s := NewRedisSource(pool, b.Redis.KeyPrefix)
		return s, s.Close, nil
	case TypeMemcached:
		if b.Memcached == nil {
			return nil, nil, errors.New("memcached configuration is missing")
		}
		client, err := b.Memcached.CreateClient()
		if err != nil {
			return nil, nil, err
		}
		return NewMemcachedSource(client, b.Memcached.KeyPrefix), client.Close, nil
	}
	return nil, nil, errors.Errorf("unknown entry source type %q", t)
}

func valueOr[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Chain consults its sources in order and returns the first value found.
type Chain struct {
	sources []Source
}

// NewChain creates a Chain over sources
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Entry returns the first non-blank value. A blank value counts as missing, the same way the
// environment resolver reads it, so an override set to "" does not hide the next source.
func (c *Chain) Entry(ctx context.Context, name string) (string, error) {
	for _, s := range c.sources {
		value, err := s.Entry(ctx, name)
		if err == nil {
			if strings.TrimSpace(value) != "" {
				return value, nil
			}
			log.Debug().Str("source", s.Name()).Str("entry", name).Msg("Blank entry, trying next source")
			continue
		}
		if !IsNotFound(err) {
			log.Warn().Err(err).Str("source", s.Name()).Str("entry", name).Msg("Entry source failed, trying next")
		}
	}
	return "", notFound(name)
}

// Name returns the names of the chained sources
func (c *Chain) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}
