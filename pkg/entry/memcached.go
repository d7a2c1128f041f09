package entry

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MemcachedConfig holds configuration for the Memcached source
type MemcachedConfig struct {
	// Servers is a list of Memcached server addresses (host:port)
	Servers []string `yaml:"servers" toml:"servers"`

	// Timeout for Memcached operations. Default: 100ms if not specified
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`

	// MaxIdleConns is the maximum number of idle connections per server. Default: 2
	MaxIdleConns int `yaml:"max_idle_conns" toml:"max_idle_conns"`

	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix"`
}

// Validate checks if the MemcachedConfig has all required fields set
func (m MemcachedConfig) Validate() error {
	if len(m.Servers) == 0 {
		return errors.New("at least one Memcached server address is required")
	}

	for i, server := range m.Servers {
		if server == "" {
			return errors.Errorf("server address at index %d is empty", i)
		}
	}

	if m.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}

	if m.MaxIdleConns < 0 {
		return errors.New("max_idle_conns cannot be negative")
	}

	return nil
}

// CreateClient creates a Memcached client from this config and pings it.
func (m MemcachedConfig) CreateClient() (*memcache.Client, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Memcached configuration")
	}

	client := memcache.New(m.Servers...)

	if m.Timeout > 0 {
		client.Timeout = m.Timeout
	} else {
		client.Timeout = 100 * time.Millisecond
	}

	if m.MaxIdleConns > 0 {
		client.MaxIdleConns = m.MaxIdleConns
	} else {
		client.MaxIdleConns = 2
	}

	if err := client.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Memcached")
	}

	return client, nil
}

type memcacheGetter interface {
	Get(key string) (*memcache.Item, error)
}

// MemcachedSource reads entries stored under "<key prefix><entry name>".
type MemcachedSource struct {
	client    memcacheGetter
	keyPrefix string
}

// NewMemcachedSource creates a Memcached-backed source
func NewMemcachedSource(client *memcache.Client, keyPrefix string) *MemcachedSource {
	return &MemcachedSource{client: client, keyPrefix: keyPrefix}
}

// Entry fetches the entry from Memcached. The client enforces its own timeout.
func (m *MemcachedSource) Entry(_ context.Context, name string) (string, error) {
	key := m.keyPrefix + name
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", notFound(name)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %q from Memcached", key)
	}

	log.Debug().Str("key", key).Msg("Retrieved entry from Memcached")
	return string(item.Value), nil
}

// Name returns the source name
func (m *MemcachedSource) Name() string {
	return "Memcached"
}
