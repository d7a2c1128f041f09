// Package tokens substitutes environment tokens in configuration text.
//
// Tokens are fixed literals such as _ENVIRONMENT_NAME_ or [URL_PREFIX]; their values come from
// the resolved environment.Environment, its environment.Connection and the local host.
package tokens

import (
	"strings"

	"github.com/animalet/envtoken-go/pkg/environment"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Token literals. These are a wire contract with existing configuration files.
const (
	EnvironmentName            = "_ENVIRONMENT_NAME_"
	LegacyURLPrefix            = "_URL_PREFIX_"
	LogicalEnvironmentName     = "[LOGICAL_ENVIRONMENT_NAME]"
	EnvironmentIndex           = "[ENVIRONMENT_INDEX]"
	URLPrefix                  = "[URL_PREFIX]"
	URLPrefixNoDash            = "[URL_PREFIX_NODASH]"
	LocalEnvironmentName       = "[LOCAL_ENVIRONMENT_NAME]"
	LocalEnvironmentDataCenter = "[LOCAL_ENVIRONMENT_DATA_CENTER]"
	LocalEnvironmentSite       = "[LOCAL_ENVIRONMENT_SITE]"
	InternalEnvironmentName    = "[INTERNAL_ENVIRONMENT_NAME]"
	InternalDataCenter         = "[INTERNAL_ENVIRONMENT_DATA_CENTER]"
	HostName                   = "_HOST_NAME_"
	HostCanonicalName          = "_HOST_CANONICAL_NAME_"
)

// Engine replaces tokens with the values of one environment.
type Engine struct {
	env  *environment.Environment
	conn *environment.Connection
	host HostLookup
}

// Option configures an Engine.
type Option func(*Engine)

// WithHostLookup replaces the system host lookup. The engine calls each method at most once.
func WithHostLookup(host HostLookup) Option {
	return func(e *Engine) {
		e.host = host
	}
}

// NewEngine creates an Engine for env. A nil conn is derived from env.
func NewEngine(env *environment.Environment, conn *environment.Connection, opts ...Option) (*Engine, error) {
	if env == nil {
		return nil, errors.New("environment is required")
	}
	if conn == nil {
		conn = environment.NewConnection(env)
	}

	e := &Engine{env: env, conn: conn, host: SystemHostLookup{}}
	for _, opt := range opts {
		opt(e)
	}
	if e.host == nil {
		return nil, errors.New("host lookup is required")
	}
	e.host = lookupOnce(e.host)
	return e, nil
}

// Environment is the environment the engine substitutes.
func (e *Engine) Environment() *environment.Environment { return e.env }

// Connection is the internal connection the engine substitutes.
func (e *Engine) Connection() *environment.Connection { return e.conn }

// LegacyEnvironmentName is the value of _ENVIRONMENT_NAME_.
func (e *Engine) LegacyEnvironmentName() string {
	return environment.ToLegacy(e.env)
}

// Tokens returns the current token values. Host tokens whose lookup fails are left out.
// The host is looked up on first use and the answer is kept for the life of the engine.
func (e *Engine) Tokens() map[string]string {
	urlPrefix := e.env.URLPrefix()

	tokens := map[string]string{
		EnvironmentName:            e.LegacyEnvironmentName(),
		LegacyURLPrefix:            e.env.URLLegacyPrefix(),
		LogicalEnvironmentName:     e.env.LogicalName(),
		EnvironmentIndex:           e.env.Index(),
		URLPrefix:                  urlPrefix,
		URLPrefixNoDash:            strings.TrimSuffix(urlPrefix, "-"),
		LocalEnvironmentName:       e.env.Name(),
		LocalEnvironmentDataCenter: e.env.DataCenter(),
		LocalEnvironmentSite:       e.env.Site(),
		InternalEnvironmentName:    e.conn.InternalName(),
		InternalDataCenter:         e.conn.InternalDataCenter(),
	}

	if name, err := e.host.HostName(); err != nil {
		log.Warn().Err(err).Str("token", HostName).Msg("Host name lookup failed, token left in place")
	} else {
		tokens[HostName] = name
	}
	if name, err := e.host.CanonicalHostName(); err != nil {
		log.Warn().Err(err).Str("token", HostCanonicalName).Msg("Canonical host name lookup failed, token left in place")
	} else {
		tokens[HostCanonicalName] = name
	}

	for token, value := range tokens {
		if strings.TrimSpace(value) == "" {
			tokens[token] = ""
		}
	}
	return tokens
}

// Substitute replaces every token occurrence in text. Replacement is a single pass, so a value
// that contains a token literal is not substituted again.
func (e *Engine) Substitute(text string) string {
	if text == "" {
		return text
	}

	tokens := e.Tokens()
	pairs := make([]string, 0, len(tokens)*2)
	for token, value := range tokens {
		pairs = append(pairs, token, value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// SelectAndSubstitute picks local when the environment is local and managed otherwise, then
// substitutes it. It reports false when the selected side is nil.
func (e *Engine) SelectAndSubstitute(local, managed *string) (string, bool) {
	if (local == nil) != (managed == nil) {
		log.Warn().
			Bool("local_set", local != nil).
			Bool("managed_set", managed != nil).
			Msg("Only one of the local and managed values is set")
	}

	selected := managed
	if e.env.IsLocal() {
		selected = local
	}
	if selected == nil {
		return "", false
	}
	return e.Substitute(*selected), true
}
