package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy/deploy"
)

// runDowngrade reverses the most recently applied migration steps.
func runDowngrade(args []string, g GlobalFlags) {
	fs := flag.NewFlagSet("downgrade", flag.ExitOnError)
	steps := fs.Int("steps", 1, "Number of steps to reverse")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbdeploy downgrade [options]

Description:
  Apply the reverse operation of the most recently applied step, decrementing
  the version ledger with each reversal. Fails if a step has no reverse
  operation.

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
	status, err := runner.Downgrade(ctx, *steps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}
	printStatus(g, status)
}
