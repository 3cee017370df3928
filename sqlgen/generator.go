// Package sqlgen writes the declared schema and version ledger as a plain
// SQL file, for DBA review or for running through an external migration tool
// instead of the built-in runner.
package sqlgen

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/migrate"
	"github.com/priceaction/dbdeploy/schema"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// Config configures SQL file generation.
type Config struct {
	// OutputFolder is the directory where the SQL file will be written
	OutputFolder string

	// OutputFilename is the name of the SQL file
	OutputFilename string

	// LedgerTable is the name of the version ledger table
	LedgerTable string
}

// DefaultConfig returns the default generation configuration with a
// timestamp-based filename.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_init_schema.sql", timestamp),
		LedgerTable:    migrate.DefaultLedgerTable,
	}
}

// Generate renders the full baseline schema and the ledger DDL for a dialect
// and writes it to the configured file.
func Generate(d dbdeploy.Dialect, config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sql, err := Render(d, config.LedgerTable)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write SQL file: %w", err)
	}

	return nil
}

// Render returns the baseline schema and ledger DDL as one SQL script.
func Render(d dbdeploy.Dialect, ledgerTable string) (string, error) {
	switch d {
	case dbdeploy.DialectPostgres, dbdeploy.DialectMySQL, dbdeploy.DialectSQLite:
	default:
		return "", fmt.Errorf("unsupported dialect %q", d)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Schema baseline\n-- Generated: %s\n-- Dialect: %s\n\n",
		time.Now().Format(time.RFC3339), d)

	for _, e := range schema.Entities {
		stmt, err := schema.CreateIfAbsent(e, d)
		if err != nil {
			return "", err
		}
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}

	b.WriteString("-- Version ledger\n")
	b.WriteString(migrate.LedgerDDL(d, ledgerTable))
	b.WriteString(";\n")

	return b.String(), nil
}

func validateConfig(config *Config) error {
	return validateIdentifier(config.LedgerTable, "LedgerTable")
}
