package server

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

const defaultShutdownTimeout = 30 * time.Second

// Config is the "server" section.
//
//	server:
//	  address: 127.0.0.1:8080
//	  allowed_hosts: [envtoken.internal:8080]
type Config struct {
	Address               string        `yaml:"address" toml:"address"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	AllowedHosts          []string      `yaml:"allowed_hosts" toml:"allowed_hosts"`
	ContentSecurityPolicy string        `yaml:"content_security_policy" toml:"content_security_policy"`
}

// Validate checks if the Config has all required fields set.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("address must be set and non-empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", c.Address); err != nil {
		return errors.Wrap(err, "invalid address")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown_timeout cannot be negative")
	}
	return nil
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return defaultShutdownTimeout
	}
	return c.ShutdownTimeout
}
