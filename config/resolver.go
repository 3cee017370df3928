// Package config resolves a deployment environment into a fully-specified
// storage descriptor. Resolution is a pure function of its inputs and the
// declared defaults; all environment reading happens up front in
// OverridesFromEnv so nothing downstream touches ambient state.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/priceaction/dbdeploy"
)

// Default locator for development. Matches the service's historical
// single-file store next to the working directory.
const DefaultDevelopmentLocator = "./lms.db"

// Default pool sizing per backend kind.
const (
	DefaultEmbeddedMaxConns  = 1
	DefaultNetworkedMaxConns = 10
	DefaultIdleTimeout       = 5 * time.Minute
)

// Overrides carries optional explicit settings that take precedence over
// environment defaults. The zero value means "no overrides".
type Overrides struct {
	// Locator, when non-empty, is used verbatim as the connection locator.
	Locator string

	// MaxConns, when positive, overrides the pool's max open connections.
	MaxConns int

	// IdleTimeout, when positive, overrides the pool idle timeout.
	IdleTimeout time.Duration

	// RequireTLS, when set, overrides the TLS requirement flag.
	RequireTLS *bool
}

// Merge returns a copy of o with any unset fields filled from other.
// Fields set on o win.
func (o Overrides) Merge(other Overrides) Overrides {
	if o.Locator == "" {
		o.Locator = other.Locator
	}
	if o.MaxConns <= 0 {
		o.MaxConns = other.MaxConns
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = other.IdleTimeout
	}
	if o.RequireTLS == nil {
		o.RequireTLS = other.RequireTLS
	}
	return o
}

// Resolve produces the storage descriptor for an environment.
//
// An explicit locator override always wins verbatim; its backend kind and
// dialect are inferred from its shape. Otherwise development resolves to an
// embedded file store with no network dependency, and production requires a
// networked locator: it fails with dbdeploy.ErrMissingLocator rather than
// silently falling back to a throwaway file store.
//
// An environment name outside the enumerated set fails with
// dbdeploy.ErrUnknownEnvironment.
func Resolve(env dbdeploy.Environment, o Overrides) (dbdeploy.StorageDescriptor, error) {
	switch env {
	case dbdeploy.EnvDevelopment, dbdeploy.EnvProduction:
	default:
		return dbdeploy.StorageDescriptor{}, fmt.Errorf("%w: %q", dbdeploy.ErrUnknownEnvironment, env)
	}

	locator := o.Locator
	if locator == "" {
		if env == dbdeploy.EnvProduction {
			return dbdeploy.StorageDescriptor{}, fmt.Errorf("%w: production requires an explicit locator", dbdeploy.ErrMissingLocator)
		}
		locator = DefaultDevelopmentLocator
	}

	kind, dialect := classifyLocator(locator)
	if env == dbdeploy.EnvProduction && kind != dbdeploy.BackendNetworked {
		return dbdeploy.StorageDescriptor{}, fmt.Errorf("%w: locator %q is not a networked store", dbdeploy.ErrMissingLocator, locator)
	}

	desc := dbdeploy.StorageDescriptor{
		Kind:    kind,
		Dialect: dialect,
		Locator: locator,
		Pool: dbdeploy.PoolConfig{
			MaxConns:    DefaultNetworkedMaxConns,
			IdleTimeout: DefaultIdleTimeout,
		},
		RequireTLS: env == dbdeploy.EnvProduction,
	}
	if kind == dbdeploy.BackendEmbedded {
		desc.Pool.MaxConns = DefaultEmbeddedMaxConns
		desc.RequireTLS = false
	}

	if o.MaxConns > 0 && kind == dbdeploy.BackendNetworked {
		desc.Pool.MaxConns = o.MaxConns
	}
	if o.IdleTimeout > 0 {
		desc.Pool.IdleTimeout = o.IdleTimeout
	}
	if o.RequireTLS != nil && kind == dbdeploy.BackendNetworked {
		desc.RequireTLS = *o.RequireTLS
	}

	return desc, nil
}

// classifyLocator infers backend kind and dialect from a locator's shape.
// URL-style postgres locators and go-sql-driver MySQL DSNs are networked;
// anything else is treated as an embedded file path.
func classifyLocator(locator string) (dbdeploy.BackendKind, dbdeploy.Dialect) {
	switch {
	case strings.HasPrefix(locator, "postgres://"), strings.HasPrefix(locator, "postgresql://"):
		return dbdeploy.BackendNetworked, dbdeploy.DialectPostgres
	case strings.HasPrefix(locator, "mysql://"), strings.Contains(locator, "@tcp("):
		return dbdeploy.BackendNetworked, dbdeploy.DialectMySQL
	default:
		return dbdeploy.BackendEmbedded, dbdeploy.DialectSQLite
	}
}
