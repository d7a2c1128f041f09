// Package entry provides the sources that environment entries are read from.
// An entry is a named string value (e.g. "environment-name.edmunds.com") published by the
// deployment: a DNS TXT record in managed environments, a properties file on hosts that
// carry one, or one of the secret/KV backends supported by the framework.
//
// Sources never cache and never parse. Higher level code in the environment package decides
// what a missing or blank value means.
package entry

import (
	"context"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Entry names published for every deployment.
const (
	LegacyEnvironment      = "environment.edmunds.com"
	EnvironmentName        = "environment-name.edmunds.com"
	URLPrefix              = "url-prefix.edmunds.com"
	DataCenter             = "environment-datacenter.edmunds.com"
	Site                   = "environment-site.edmunds.com"
	LogicalEnvironmentName = "logical-environment-name.edmunds.com"
	EnvironmentIndex       = "environment-index.edmunds.com"
)

// Names lists every entry the environment resolver reads, in lookup order.
var Names = []string{
	LegacyEnvironment,
	EnvironmentName,
	URLPrefix,
	DataCenter,
	Site,
	LogicalEnvironmentName,
	EnvironmentIndex,
}

// ErrNotFound is returned (possibly wrapped) when a source has no value for an entry.
var ErrNotFound = errors.New("entry not found")

// Source defines the low level lookup of configuration entries.
//
// Implementations must not cache: the environment resolver reads every entry exactly once
// and memoizes the result itself. A missing entry is reported with an error wrapping
// ErrNotFound; any other error is treated the same way by callers, so implementations
// are free to fold transport failures into it.
type Source interface {
	// Entry returns the raw value for the given entry name.
	Entry(ctx context.Context, name string) (string, error)

	// Name returns a human-readable name for this source (for logging/debugging)
	Name() string
}

// KeyReader is implemented by sources that keep values under short keys. Key reads a key as
// given, where Entry first maps the entry name through ShortName.
type KeyReader interface {
	Key(ctx context.Context, key string) (string, error)
}

// IsNotFound reports whether err means the entry is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(name string) error {
	return errors.Wrapf(ErrNotFound, "%q", name)
}

// ShortName strips the domain from an entry name:
// "environment-name.edmunds.com" -> "environment-name".
// Names without a dot, or starting with one, are returned unchanged.
func ShortName(name string) string {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// envVarName maps an entry name to an environment variable name:
// "environment-name.edmunds.com" -> "ENVIRONMENT_NAME".
func envVarName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, ShortName(name))
}
