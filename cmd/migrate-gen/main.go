// Command migrate-gen writes the declared schema and version ledger as a
// plain SQL file, for review or for running through an external tool.
//
// Usage:
//
//	go run github.com/priceaction/dbdeploy/cmd/migrate-gen --output migrations --filename init.sql
//
// Generate for different dialects:
//
//	go run github.com/priceaction/dbdeploy/cmd/migrate-gen --dialect postgres --output migrations
//	go run github.com/priceaction/dbdeploy/cmd/migrate-gen --dialect mysql --output migrations
//	go run github.com/priceaction/dbdeploy/cmd/migrate-gen --dialect sqlite --output migrations
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/sqlgen"
)

func main() {
	var (
		dialect        = pflag.String("dialect", "postgres", "Database dialect: postgres, mysql, or sqlite")
		outputFolder   = pflag.String("output", "migrations", "Output folder for the SQL file")
		outputFilename = pflag.String("filename", "", "Output filename (default: timestamp-based)")
		ledgerTable    = pflag.String("ledger-table", "", "Name of the version ledger table")
	)
	pflag.Parse()

	config := sqlgen.DefaultConfig()
	config.OutputFolder = *outputFolder
	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}
	if *ledgerTable != "" {
		config.LedgerTable = *ledgerTable
	}

	d := dbdeploy.Dialect(*dialect)
	switch d {
	case dbdeploy.DialectPostgres, dbdeploy.DialectMySQL, dbdeploy.DialectSQLite:
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported dialect '%s'. Supported dialects are: postgres, mysql, sqlite\n", *dialect)
		os.Exit(1)
	}

	if err := sqlgen.Generate(d, &config); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s schema: %s/%s\n", *dialect, config.OutputFolder, config.OutputFilename)
}
