package main

import (
	"github.com/animalet/envtoken-go/pkg/config"
	"github.com/animalet/envtoken-go/pkg/entry"
	"github.com/animalet/envtoken-go/pkg/resolver"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gomodule/redigo/redis"
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// loadConfig reads the configuration file and registers the property resolvers it configures.
// Without a file the configuration is empty and every backend uses its defaults.
// The returned function releases the resolvers' connections.
func loadConfig(configPath string) (*config.Config, func(), error) {
	var cfg *config.Config
	var err error
	if configPath == "" {
		cfg, err = config.Parse(nil, config.YAML)
	} else {
		cfg, err = config.NewConfig(configPath)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration file")
	}

	release, err := registerResolvers(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, release, nil
}

// registerResolvers registers a resolver for every configured backend. Sections are read in
// dependency order, so a vault token may come from ${file:...}.
func registerResolvers(cfg *config.Config) (func(), error) {
	var closers []func() error
	release := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	fail := func(err error, msg string) (func(), error) {
		release()
		return nil, errors.Wrap(err, msg)
	}

	fileResolver, err := config.GetClient[resolver.FileResolverConfig, *resolver.FileResolver](cfg, "file_resolver")
	if err != nil {
		return fail(err, "failed to load or create file resolver")
	}
	if fileResolver != nil {
		resolver.Register("file", *fileResolver)
	}

	vaultClient, err := config.GetClient[entry.VaultConfig, *api.Client](cfg, "vault")
	if err != nil {
		return fail(err, "failed to load or create Vault client")
	}
	if vaultClient != nil {
		vaultCfg, err := config.Get[entry.VaultConfig](cfg, "vault")
		if err != nil {
			return fail(err, "failed to load Vault configuration")
		}
		resolver.Register("vault", resolver.FromSource(entry.NewVaultSource(*vaultClient, vaultCfg.Path)))
	}

	awsClient, err := config.GetClient[entry.AWSConfig, *secretsmanager.Client](cfg, "aws")
	if err != nil {
		return fail(err, "failed to load or create AWS Secrets Manager client")
	}
	if awsClient != nil {
		awsCfg, err := config.Get[entry.AWSConfig](cfg, "aws")
		if err != nil {
			return fail(err, "failed to load AWS Secrets Manager configuration")
		}
		resolver.Register("aws", resolver.FromSource(entry.NewAWSSource(*awsClient, awsCfg.SecretName)))
	}

	redisPool, err := config.GetClient[entry.RedisConfig, *redis.Pool](cfg, "redis")
	if err != nil {
		return fail(err, "failed to load or create Redis pool")
	}
	if redisPool != nil {
		redisCfg, err := config.Get[entry.RedisConfig](cfg, "redis")
		if err != nil {
			return fail(err, "failed to load Redis configuration")
		}
		source := entry.NewRedisSource(*redisPool, redisCfg.KeyPrefix)
		closers = append(closers, source.Close)
		resolver.Register("redis", resolver.FromSource(source))
	}

	memcachedClient, err := config.GetClient[entry.MemcachedConfig, *memcache.Client](cfg, "memcached")
	if err != nil {
		return fail(err, "failed to load or create Memcached client")
	}
	if memcachedClient != nil {
		memcachedCfg, err := config.Get[entry.MemcachedConfig](cfg, "memcached")
		if err != nil {
			return fail(err, "failed to load Memcached configuration")
		}
		closers = append(closers, (*memcachedClient).Close)
		resolver.Register("memcached", resolver.FromSource(entry.NewMemcachedSource(*memcachedClient, memcachedCfg.KeyPrefix)))
	}

	log.Debug().Strs("prefixes", resolver.Global.Prefixes()).Msg("Property resolvers registered")
	return release, nil
}

// openSource builds the entry source from the "source" section and the backend sections.
func openSource(cfg *config.Config) (entry.Source, func() error, error) {
	var sourceCfg entry.SourceConfig
	parsed, err := config.Get[entry.SourceConfig](cfg, "source")
	if err != nil {
		return nil, nil, err
	}
	if parsed != nil {
		sourceCfg = *parsed
	}

	var backends entry.Backends
	if backends.DNS, err = config.Get[entry.DNSConfig](cfg, "dns"); err != nil {
		return nil, nil, err
	}
	if backends.File, err = config.Get[entry.FileConfig](cfg, "properties_file"); err != nil {
		return nil, nil, err
	}
	if backends.Env, err = config.Get[entry.EnvConfig](cfg, "env"); err != nil {
		return nil, nil, err
	}
	if backends.Vault, err = config.Get[entry.VaultConfig](cfg, "vault"); err != nil {
		return nil, nil, err
	}
	if backends.AWS, err = config.Get[entry.AWSConfig](cfg, "aws"); err != nil {
		return nil, nil, err
	}
	if backends.Redis, err = config.Get[entry.RedisConfig](cfg, "redis"); err != nil {
		return nil, nil, err
	}
	if backends.Memcached, err = config.Get[entry.MemcachedConfig](cfg, "memcached"); err != nil {
		return nil, nil, err
	}

	return entry.Open(sourceCfg, backends)
}
