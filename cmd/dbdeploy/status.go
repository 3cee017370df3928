package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy/deploy"
)

// runStatus reports the current schema version against the plan head.
func runStatus(args []string, g GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbdeploy status

Description:
  Show the last applied migration ordinal and how it compares to the plan.

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(exitUsage)
	}

	ctx := context.Background()
	desc := resolveDescriptor(g)
	h := openHandle(ctx, desc)
	defer h.Close()

	runner := newRunner(h)
	status, err := runner.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}

	fmt.Printf("backend:  %s (%s)\n", desc.Kind, desc.Dialect)
	fmt.Printf("locator:  %s\n", desc.Locator)
	fmt.Printf("version:  %d of %d (%s)\n", status.Version, status.Target, status.State)
}
