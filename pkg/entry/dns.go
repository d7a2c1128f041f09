package entry

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultDNSTimeout = 2 * time.Second

// DNSConfig holds configuration for the DNS TXT record source
type DNSConfig struct {
	// Server is an optional "host:port" name server. The system resolver is used when empty.
	Server string `yaml:"server" toml:"server"`
	// Timeout bounds every lookup. Default: 2s if not specified
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// Validate checks if the DNSConfig is usable
func (d DNSConfig) Validate() error {
	if d.Timeout < 0 {
		return errors.New("dns timeout cannot be negative")
	}
	if d.Server != "" {
		if _, _, err := net.SplitHostPort(d.Server); err != nil {
			return errors.Wrapf(err, "invalid dns server %q", d.Server)
		}
	}
	return nil
}

// CreateClient creates a DNSSource from this config.
func (d DNSConfig) CreateClient() (*DNSSource, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return NewDNSSource(d), nil
}

// txtLookup is the subset of *net.Resolver used by DNSSource.
type txtLookup interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DNSSource reads entries from DNS TXT records. The first TXT string of the record is the value.
type DNSSource struct {
	resolver txtLookup
	timeout  time.Duration
}

// NewDNSSource creates a DNS-backed source
func NewDNSSource(cfg DNSConfig) *DNSSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultDNSTimeout
	}

	resolver := net.DefaultResolver
	if cfg.Server != "" {
		server := cfg.Server
		resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: timeout}
				return d.DialContext(ctx, network, server)
			},
		}
	}

	return &DNSSource{resolver: resolver, timeout: timeout}
}

// Entry looks up the TXT record for name
func (d *DNSSource) Entry(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", notFound(name)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	records, err := d.resolver.LookupTXT(ctx, name)
	if err != nil {
		log.Warn().Err(err).Str("entry", name).Msg("Error looking up TXT entry from DNS")
		return "", errors.Wrapf(ErrNotFound, "%q: %v", name, err)
	}
	if len(records) == 0 {
		log.Warn().Str("entry", name).Msg("No TXT attribute found for DNS entry")
		return "", notFound(name)
	}

	return records[0], nil
}

// Name returns the source name
func (d *DNSSource) Name() string {
	return "DNS"
}
