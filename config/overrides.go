package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/priceaction/dbdeploy"
)

// Environment variables read by the resolver's callers.
const (
	// EnvVarEnvironment selects the deployment environment.
	EnvVarEnvironment = "ENVIRONMENT"

	// EnvVarLocator is the explicit connection locator override.
	EnvVarLocator = "DATABASE_URL"

	// EnvVarMaxConns overrides the pool's max open connections.
	EnvVarMaxConns = "DB_MAX_CONNS"

	// EnvVarIdleTimeout overrides the pool idle timeout (Go duration syntax).
	EnvVarIdleTimeout = "DB_IDLE_TIMEOUT"

	// EnvVarRequireTLS overrides the TLS requirement flag.
	EnvVarRequireTLS = "DB_REQUIRE_TLS"
)

// EnvironmentFromEnv reads the environment name variable.
// Defaults to development when unset, matching the service's historical
// behavior for local work; production deploys set it explicitly.
func EnvironmentFromEnv() dbdeploy.Environment {
	if v := os.Getenv(EnvVarEnvironment); v != "" {
		return dbdeploy.Environment(v)
	}
	return dbdeploy.EnvDevelopment
}

// OverridesFromEnv collects explicit overrides from the process environment.
// Malformed values are reported rather than ignored so a typo in a deploy
// manifest halts the deploy instead of silently using a default.
func OverridesFromEnv() (Overrides, error) {
	var o Overrides
	o.Locator = os.Getenv(EnvVarLocator)

	if v := os.Getenv(EnvVarMaxConns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Overrides{}, fmt.Errorf("invalid %s %q: must be a positive integer", EnvVarMaxConns, v)
		}
		o.MaxConns = n
	}

	if v := os.Getenv(EnvVarIdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Overrides{}, fmt.Errorf("invalid %s %q: must be a positive duration", EnvVarIdleTimeout, v)
		}
		o.IdleTimeout = d
	}

	if v := os.Getenv(EnvVarRequireTLS); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Overrides{}, fmt.Errorf("invalid %s %q: must be a boolean", EnvVarRequireTLS, v)
		}
		o.RequireTLS = &b
	}

	return o, nil
}

// fileOverrides is the YAML shape of an overrides file. Durations are
// strings in Go duration syntax.
type fileOverrides struct {
	Locator     string `yaml:"locator"`
	MaxConns    int    `yaml:"max_conns"`
	IdleTimeout string `yaml:"idle_timeout"`
	RequireTLS  *bool  `yaml:"require_tls"`
}

// LoadOverridesFile reads overrides from a YAML file. Environment variables
// are expected to win over file values; callers merge with
// envOverrides.Merge(fileOverrides).
func LoadOverridesFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read overrides file: %w", err)
	}

	var f fileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Overrides{}, fmt.Errorf("parse overrides file %s: %w", path, err)
	}

	o := Overrides{Locator: f.Locator, MaxConns: f.MaxConns, RequireTLS: f.RequireTLS}
	if f.IdleTimeout != "" {
		d, err := time.ParseDuration(f.IdleTimeout)
		if err != nil || d <= 0 {
			return Overrides{}, fmt.Errorf("invalid idle_timeout %q in %s: must be a positive duration", f.IdleTimeout, path)
		}
		o.IdleTimeout = d
	}
	return o, nil
}
