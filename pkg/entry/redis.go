package entry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RedisConfig holds configuration options for the Redis source connection pool
type RedisConfig struct {
	Address     string        `yaml:"address" toml:"address"`
	Username    string        `yaml:"username,omitempty" toml:"username"`
	Password    string        `yaml:"password,omitempty" toml:"password"`
	Database    int           `yaml:"database,omitempty" toml:"database"`
	MaxIdle     int           `yaml:"max_idle" toml:"max_idle"`
	IdleTimeout time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	// KeyPrefix is prepended to every entry name, e.g. "env:" -> GET env:url-prefix.edmunds.com
	KeyPrefix string     `yaml:"key_prefix" toml:"key_prefix"`
	TLS       *TLSConfig `yaml:"tls,omitempty" toml:"tls"`
}

// TLSConfig holds TLS configuration for Redis connections
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	CertFile           string `yaml:"cert_file" toml:"cert_file"`
	KeyFile            string `yaml:"key_file" toml:"key_file"`
	CAFile             string `yaml:"ca_file" toml:"ca_file"`
}

func (r RedisConfig) Validate() error {
	if r.Address == "" {
		return errors.New("redis address must be set and non-empty")
	}
	if r.MaxIdle < 0 {
		return errors.New("redis max_idle must be non-negative")
	}
	if r.IdleTimeout < 0 {
		return errors.New("redis idle_timeout must be non-negative")
	}
	if r.Database < 0 {
		return errors.New("redis database must be non-negative")
	}
	if r.TLS != nil {
		if (r.TLS.CertFile != "" && r.TLS.KeyFile == "") || (r.TLS.CertFile == "" && r.TLS.KeyFile != "") {
			return errors.New("both cert_file and key_file must be set together in TLS configuration")
		}
	}
	return nil
}

// CreateClient creates and configures a Redis connection pool from this config.
func (r RedisConfig) CreateClient() (*redis.Pool, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Redis configuration")
	}
	return &redis.Pool{
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		MaxIdle:     r.MaxIdle,
		IdleTimeout: r.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			return dialRedis(r)
		},
	}, nil
}

// dialRedis establishes a Redis connection with the given configuration
func dialRedis(config RedisConfig) (redis.Conn, error) {
	opts := []redis.DialOption{redis.DialDatabase(config.Database)}

	if config.Username != "" {
		opts = append(opts, redis.DialUsername(config.Username))
	}
	if config.Password != "" {
		opts = append(opts, redis.DialPassword(config.Password))
	}

	if config.TLS != nil {
		tlsConfig, err := config.TLS.build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, redis.DialTLSConfig(tlsConfig), redis.DialUseTLS(true))
	}

	return redis.Dial("tcp", config.Address, opts...)
}

func (t *TLSConfig) build() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify, // #nosec G402 -- opt-in for test clusters
	}

	if t.CAFile != "" {
		caCert, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CA certificate %q", t.CAFile)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.Errorf("failed to parse CA certificate %q", t.CAFile)
		}
		tlsConfig.RootCAs = caCertPool
	}

	if t.CertFile != "" && t.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// RedisSource reads entries with a plain GET of "<key prefix><entry name>".
type RedisSource struct {
	pool      *redis.Pool
	keyPrefix string
}

// NewRedisSource creates a Redis-backed source over an existing pool
func NewRedisSource(pool *redis.Pool, keyPrefix string) *RedisSource {
	return &RedisSource{pool: pool, keyPrefix: keyPrefix}
}

// Entry fetches the entry from Redis
func (r *RedisSource) Entry(ctx context.Context, name string) (string, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get Redis connection")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to return Redis connection to pool")
		}
	}()

	key := r.keyPrefix + name
	value, err := redis.String(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return "", notFound(name)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %q from Redis", key)
	}

	log.Debug().Str("key", key).Msg("Retrieved entry from Redis")
	return value, nil
}

// Close releases the pool
func (r *RedisSource) Close() error {
	return r.pool.Close()
}

// Name returns the source name
func (r *RedisSource) Name() string {
	return "Redis"
}
