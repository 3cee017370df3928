package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/config"
	"github.com/priceaction/dbdeploy/deploy"
)

// runDeploy performs the full unattended deployment sequence: resolve,
// connect, baseline or migrate, and report readiness. Deploy pipelines gate
// service startup on this command's exit code.
func runDeploy(args []string, g GlobalFlags) {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	timeout := fs.Duration("timeout", deploy.DefaultTimeout, "Deploy-level timeout")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbdeploy deploy [options]

Description:
  Resolve configuration, open the backend, ensure the baseline on a fresh
  database or migrate an existing one to the plan head. Exits non-zero
  without touching service startup if any stage fails.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(exitUsage)
	}

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

	orch := deploy.New(deploy.Config{Overrides: overrides, Timeout: *timeout})

	start := time.Now()
	outcome := orch.Run(context.Background(), env)
	if outcome.Stage != deploy.StageReady {
		fmt.Fprintf(os.Stderr, "Error: deployment failed at %s stage: %v\n", outcome.Stage, outcome.Err)
		os.Exit(outcome.ExitCode())
	}
	defer outcome.Handle.Close()

	if !g.Quiet {
		fmt.Printf("deployment ready in %s: %s at version %d\n",
			time.Since(start).Round(time.Millisecond), outcome.Descriptor.Locator, outcome.Status.Version)
	}
}
