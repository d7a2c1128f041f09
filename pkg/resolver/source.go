package resolver

import (
	"context"
	"time"

	"github.com/animalet/envtoken-go/pkg/entry"
)

const sourceTimeout = 5 * time.Second

// SourceResolver exposes an entry.Source as a PropertyResolver, so the backends that publish
// environment entries (Vault, AWS Secrets Manager, Redis, Memcached) can also feed
// configuration values.
//
//	token: ${vault:api_token}
type SourceResolver struct {
	source  entry.Source
	timeout time.Duration
}

// FromSource wraps source. Each lookup is bounded by a five second timeout. Sources that
// implement entry.KeyReader are read by the raw key, so ${vault:db.password} reads
// "db.password" rather than the entry short name "db".
func FromSource(source entry.Source) *SourceResolver {
	return &SourceResolver{source: source, timeout: sourceTimeout}
}

func (s *SourceResolver) Resolve(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if keys, ok := s.source.(entry.KeyReader); ok {
		return keys.Key(ctx, key)
	}
	return s.source.Entry(ctx, key)
}

func (s *SourceResolver) Name() string {
	return s.source.Name()
}
