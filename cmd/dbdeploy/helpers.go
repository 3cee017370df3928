package main

import (
	"context"
	"fmt"
	"os"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/config"
	"github.com/priceaction/dbdeploy/conn"
	"github.com/priceaction/dbdeploy/deploy"
	"github.com/priceaction/dbdeploy/migrate"
)

// resolveDescriptor builds the storage descriptor from the environment, the
// process env vars, and an optional overrides file. Exits with the config
// code on any resolution problem.
func resolveDescriptor(g GlobalFlags) dbdeploy.StorageDescriptor {
	env := config.EnvironmentFromEnv()
	if g.Env != "" {
		env = dbdeploy.Environment(g.Env)
	}

	overrides, err := config.OverridesFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitConfig)
	}

	if g.ConfigPath != "" {
		fileOverrides, err := config.LoadOverridesFile(g.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(deploy.ExitConfig)
		}
		overrides = overrides.Merge(fileOverrides)
	}

	desc, err := config.Resolve(env, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitConfig)
	}
	return desc
}

// openHandle opens the backend or exits with the connect code.
func openHandle(ctx context.Context, desc dbdeploy.StorageDescriptor) *conn.Handle {
	h, err := conn.Open(ctx, desc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitConnect)
	}
	return h
}

// newRunner builds a migration runner or exits with the migrate code.
func newRunner(h *conn.Handle) *migrate.Runner {
	r, err := migrate.New(migrate.Config{Handle: h})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}
	return r
}

// printStatus writes a one-line schema status unless quiet.
func printStatus(g GlobalFlags, status dbdeploy.Status) {
	if g.Quiet {
		return
	}
	fmt.Printf("schema version %d of %d (%s)\n", status.Version, status.Target, status.State)
}
