package environment

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/animalet/envtoken-go/pkg/entry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Defaults applied when the corresponding entry is missing or blank.
const (
	LocalName         = "local"
	DefaultDataCenter = "lax1"
	DefaultSite       = "edmunds"
	DefaultIndex      = "a"

	prodURLPrefix = "prod"
)

// ErrBlankURLPrefix means a managed (non-local) environment has no URL prefix. Such a
// deployment is broken and must not start.
var ErrBlankURLPrefix = errors.New("cannot have a blank url prefix outside of a local environment")

// Resolver reads the environment entries from a Source once and memoizes the result.
// It is safe for concurrent use: the first caller resolves, everybody else reads the
// published Environment.
type Resolver struct {
	source entry.Source
	mu     sync.Mutex
	env    atomic.Pointer[Environment]
}

// NewResolver creates a Resolver over source.
func NewResolver(source entry.Source) *Resolver {
	return &Resolver{source: source}
}

// Environment returns the resolved Environment, resolving it on first use.
// A failed resolution is not cached.
func (r *Resolver) Environment(ctx context.Context) (*Environment, error) {
	if env := r.env.Load(); env != nil {
		return env, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if env := r.env.Load(); env != nil {
		return env, nil
	}

	env, err := Resolve(ctx, r.source)
	if err != nil {
		return nil, err
	}
	r.env.Store(env)
	return env, nil
}

// Override replaces the memoized Environment. Intended for bootstrap code and tests.
func (r *Resolver) Override(env *Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env.Store(env)
}

// Resolve reads the environment entries from source and builds an Environment.
//
// Entries are read in a fixed order: legacy environment, environment name, URL prefix,
// data center, site, logical environment name and environment index. When neither
// environment entry is present the environment is local. A non-local environment without
// a URL prefix fails with ErrBlankURLPrefix; every other missing entry gets a default.
func Resolve(ctx context.Context, source entry.Source) (*Environment, error) {
	lookup := &lookup{ctx: ctx, source: source}

	legacyName := ToCurrent(lookup.get(entry.LegacyEnvironment))
	name := lookup.get(entry.EnvironmentName)
	urlPrefix := lookup.get(entry.URLPrefix)

	local := false
	if isBlank(name) {
		log.Warn().Msg("The environment name entry was not found. Checking legacy setting")
		if isBlank(legacyName) {
			log.Warn().Msg("The legacy environment entry was not found. Defaulting to local environment")
			local = true
		} else {
			name = legacyName
		}
	}

	if local {
		name = LocalName
		urlPrefix = ""
	} else {
		if isBlank(urlPrefix) {
			return nil, errors.Wrapf(ErrBlankURLPrefix, "environment %q", name)
		}
		if strings.EqualFold(urlPrefix, prodURLPrefix) {
			urlPrefix = ""
		}
	}

	prefix := FormatURLPrefix(urlPrefix)
	env := New(Fields{
		Local:           local,
		Name:            name,
		URLPrefix:       prefix,
		URLLegacyPrefix: prefix,
		DataCenter:      lookup.getOr(entry.DataCenter, DefaultDataCenter),
		Site:            lookup.getOr(entry.Site, DefaultSite),
		LogicalName:     lookup.getOr(entry.LogicalEnvironmentName, name),
		Index:           lookup.getOr(entry.EnvironmentIndex, DefaultIndex),
	})

	log.Info().
		Bool("local", env.IsLocal()).
		Str("environment", env.Name()).
		Str("data_center", env.DataCenter()).
		Str("site", env.Site()).
		Str("url_prefix", env.URLPrefix()).
		Msg("Resolved environment")
	return env, nil
}

// FormatURLPrefix appends a dash to a non-blank prefix that lacks one and upper-cases it.
// Blank input is returned unchanged.
func FormatURLPrefix(prefix string) string {
	if isBlank(prefix) {
		return prefix
	}
	if !strings.HasSuffix(prefix, "-") {
		prefix += "-"
	}
	return strings.ToUpper(prefix)
}

type lookup struct {
	ctx    context.Context
	source entry.Source
}

// get returns the lower-cased entry, or "" when it is missing or blank.
func (l *lookup) get(name string) string {
	return l.getOr(name, "")
}

func (l *lookup) getOr(name, defaultValue string) string {
	value, err := l.source.Entry(l.ctx, name)
	if err != nil && !entry.IsNotFound(err) {
		log.Warn().Err(err).Str("source", l.source.Name()).Str("entry", name).Msg("Failed to read entry")
	}
	if err != nil || isBlank(value) {
		if defaultValue != "" {
			log.Warn().Str("entry", name).Str("default", defaultValue).Msg("Entry not set, using default")
		}
		return defaultValue
	}
	return strings.ToLower(value)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
