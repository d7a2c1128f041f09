// Package resolver expands ${prefix:key} references found in configuration files.
//
// Each prefix maps to a PropertyResolver. The env resolver is always available; file, vault,
// aws, redis and memcached resolvers are registered at startup when their sections are
// configured.
package resolver

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PropertyResolver retrieves a value for a key, the part after the prefix.
type PropertyResolver interface {
	Resolve(key string) (string, error)

	// Name is used in logs and errors
	Name() string
}

// Registry associates prefixes with resolvers. It is safe for concurrent use.
type Registry struct {
	resolvers map[string]PropertyResolver
	mu        sync.RWMutex
}

// Global is the registry used by the config package.
var Global = NewRegistry()

func init() {
	Global.Register("env", NewEnvResolver())
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]PropertyResolver)}
}

// Register binds resolver to prefix, which is given without the trailing colon.
// An existing binding is replaced.
func (r *Registry) Register(prefix string, resolver PropertyResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.resolvers[prefix]; exists {
		log.Warn().
			Str("prefix", prefix).
			Str("previous", existing.Name()).
			Str("resolver", resolver.Name()).
			Msg("Overriding existing property resolver")
	}
	r.resolvers[prefix] = resolver
}

// Unregister removes the resolver bound to prefix.
func (r *Registry) Unregister(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resolvers, prefix)
}

// Resolve resolves "prefix:key". A property without a prefix goes to the env resolver.
//
//	"vault:DATABASE_PASSWORD" -> vault resolver, key "DATABASE_PASSWORD"
//	"PORT"                    -> env resolver, key "PORT"
//	"custom:db:password"      -> custom resolver, key "db:password"
func (r *Registry) Resolve(property string) (string, error) {
	prefix, key := parseProperty(property)

	resolver := r.Get(prefix)
	if resolver == nil {
		return "", errors.Errorf("no resolver registered for prefix %q (registered: %s)", prefix, strings.Join(r.Prefixes(), ", "))
	}

	value, err := resolver.Resolve(key)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve property %q using %s resolver", property, resolver.Name())
	}
	return value, nil
}

// Get returns the resolver bound to prefix, or nil.
func (r *Registry) Get(prefix string) PropertyResolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolvers[prefix]
}

// Prefixes lists the registered prefixes in sorted order.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefixes := make([]string, 0, len(r.resolvers))
	for prefix := range r.resolvers {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Register binds resolver to prefix in the Global registry.
func Register(prefix string, resolver PropertyResolver) {
	Global.Register(prefix, resolver)
}

// Unregister removes prefix from the Global registry.
func Unregister(prefix string) {
	Global.Unregister(prefix)
}

func parseProperty(property string) (prefix string, key string) {
	prefix, key, found := strings.Cut(property, ":")
	if !found {
		return "env", property
	}
	return prefix, key
}
