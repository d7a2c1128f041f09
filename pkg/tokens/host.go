package tokens

import (
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const hostLookupTimeout = 2 * time.Second

// HostLookup reports the names of the local host.
type HostLookup interface {
	HostName() (string, error)
	CanonicalHostName() (string, error)
}

// SystemHostLookup asks the operating system for the host name and resolves its fully qualified
// name through DNS.
type SystemHostLookup struct {
	Resolver *net.Resolver
}

func (s SystemHostLookup) HostName() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", errors.Wrap(err, "failed to read host name")
	}
	return name, nil
}

// CanonicalHostName resolves the CNAME of the host name, falling back to a reverse lookup of its
// first address. The trailing dot is removed.
func (s SystemHostLookup) CanonicalHostName() (string, error) {
	name, err := s.HostName()
	if err != nil {
		return "", err
	}

	resolver := s.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	ctx, cancel := context.WithTimeout(context.Background(), hostLookupTimeout)
	defer cancel()

	if cname, err := resolver.LookupCNAME(ctx, name); err == nil && cname != "" {
		return strings.TrimSuffix(cname, "."), nil
	}

	addrs, err := resolver.LookupHost(ctx, name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve host %q", name)
	}
	for _, addr := range addrs {
		names, err := resolver.LookupAddr(ctx, addr)
		if err == nil && len(names) > 0 {
			return strings.TrimSuffix(names[0], "."), nil
		}
	}
	return "", errors.Errorf("no canonical name for host %q", name)
}

// onceHostLookup answers each lookup once and then repeats the first outcome, failures
// included, so a host without working DNS waits for the lookup timeout a single time.
type onceHostLookup struct {
	hostName      func() (string, error)
	canonicalName func() (string, error)
}

func lookupOnce(host HostLookup) *onceHostLookup {
	return &onceHostLookup{
		hostName:      sync.OnceValues(host.HostName),
		canonicalName: sync.OnceValues(host.CanonicalHostName),
	}
}

func (o *onceHostLookup) HostName() (string, error) { return o.hostName() }

func (o *onceHostLookup) CanonicalHostName() (string, error) { return o.canonicalName() }
