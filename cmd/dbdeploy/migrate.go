package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy/deploy"
)

// runMigrate applies migration steps up to the target version.
func runMigrate(args []string, g GlobalFlags) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	target := fs.Int("target", -1, "Target version (default: plan head)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbdeploy migrate [options]

Description:
  Apply migration steps in order from the current schema version up to the
  target. Each step commits atomically with its ledger update; a failing
  step rolls back and leaves the ledger at the last committed version.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(exitUsage)
	}

	ctx := context.Background()
	desc := resolveDescriptor(g)
	h := openHandle(ctx, desc)
	defer h.Close()

	runner := newRunner(h)
	to := *target
	if to < 0 {
		to = runner.Head()
	}

	status, err := runner.Migrate(ctx, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}
	printStatus(g, status)
}
