package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy/deploy"
	"github.com/priceaction/dbdeploy/schema"
)

// runInitialize creates the baseline schema. It only ever creates what is
// absent, so it is safe to run on every process start.
func runInitialize(args []string, g GlobalFlags) {
	fs := flag.NewFlagSet("initialize", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbdeploy initialize

Description:
  Create the backing table for every declared entity if it does not exist.
  Existing structures are never dropped or altered.

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(exitUsage)
	}

	ctx := context.Background()
	desc := resolveDescriptor(g)
	h := openHandle(ctx, desc)
	defer h.Close()

	if err := schema.EnsureBaseline(ctx, h); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(deploy.ExitMigrate)
	}

	if !g.Quiet {
		fmt.Printf("baseline schema ensured on %s\n", desc.Locator)
	}
}
