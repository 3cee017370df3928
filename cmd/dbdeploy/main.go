// Command dbdeploy provisions and migrates the service database.
//
// Usage:
//
//	dbdeploy [global options] <command> [command options]
//
// Commands:
//
//	initialize   Create the baseline schema (idempotent)
//	migrate      Apply migration steps up to a target version
//	downgrade    Reverse the most recently applied steps
//	status       Show the current schema version
//	reset        Drop and recreate everything (requires --confirm)
//	deploy       Full unattended deployment sequence
//
// Exit codes: 0 success, 1 usage, 2 configuration, 3 connection, 4 migration.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

const exitUsage = 1

// GlobalFlags are options shared by every subcommand.
type GlobalFlags struct {
	// ConfigPath is an optional YAML overrides file.
	ConfigPath string

	// Env overrides the ENVIRONMENT variable when set.
	Env string

	// Quiet suppresses informational output.
	Quiet bool
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dbdeploy [options] <command> [command options]

Commands:
  initialize   Create the baseline schema (idempotent, safe to repeat)
  migrate      Apply migration steps up to a target version
  downgrade    Reverse the most recently applied steps
  status       Show the current schema version against the plan
  reset        Drop and recreate every entity (requires --confirm)
  deploy       Resolve, connect, and migrate for an unattended deploy

Options:
  --config string   Path to a YAML overrides file
  --env string      Deployment environment (overrides ENVIRONMENT)
  --quiet           Suppress informational output

Environment variables:
  ENVIRONMENT       development or production
  DATABASE_URL      Explicit connection locator
  DB_MAX_CONNS      Pool max open connections
  DB_IDLE_TIMEOUT   Pool idle timeout (Go duration)
  DB_REQUIRE_TLS    Require TLS on networked backends

`)
}

func main() {
	globals := flag.NewFlagSet("dbdeploy", flag.ExitOnError)
	configPath := globals.String("config", "", "Path to a YAML overrides file")
	env := globals.String("env", "", "Deployment environment (overrides ENVIRONMENT)")
	quiet := globals.Bool("quiet", false, "Suppress informational output")
	globals.Usage = usage
	globals.SetInterspersed(false)

	if err := globals.Parse(os.Args[1:]); err != nil {
		os.Exit(exitUsage)
	}

	args := globals.Args()
	if len(args) == 0 {
		usage()
		os.Exit(exitUsage)
	}

	g := GlobalFlags{ConfigPath: *configPath, Env: *env, Quiet: *quiet}

	switch args[0] {
	case "initialize":
		runInitialize(args[1:], g)
	case "migrate":
		runMigrate(args[1:], g)
	case "downgrade":
		runDowngrade(args[1:], g)
	case "status":
		runStatus(args[1:], g)
	case "reset":
		runReset(args[1:], g)
	case "deploy":
		runDeploy(args[1:], g)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		usage()
		os.Exit(exitUsage)
	}
}
