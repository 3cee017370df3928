package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy/deploy"
	"github.com/priceaction/dbdeploy/schema"
)

// runReset drops and recreates every declared entity. The --confirm flag is
// required; reset never runs as part of normal startup and never defaults on.
func runReset(args []string, g GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm the reset (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbdeploy reset --confirm

Description:
  WARNING: This is a destructive operation that drops every declared entity
  and all data in it, then recreates the baseline schema and stamps the
  ledger at the plan head.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(exitUsage)
	}

	if !*confirm {
		fmt.Fprintf(os.Stderr, "Error: the --confirm flag is required for this destructive operation\n")
		fmt.Fprintf(os.Stderr, "Run 'dbdeploy reset --confirm' to proceed\n")
		os.Exit(exitUsage)
	}

	ctx := context.Background()
	desc := resolveDescriptor(g)
	h := openHandle(ctx, desc)
	defer h.Close()

	if err := schema.ResetAll(ctx, h, *confirm); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}

	// A freshly recreated baseline is the head state by construction.
	runner := newRunner(h)
	if err := runner.Stamp(ctx, runner.Head()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}

	if !g.Quiet {
		fmt.Printf("reset complete: schema recreated at version %d\n", runner.Head())
	}
}
