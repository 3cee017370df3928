package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/priceaction/dbdeploy"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for
// SQL. Entity and column names end up interpolated into DDL, so anything
// outside the safe set is rejected.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// CreateIfAbsent renders a CREATE TABLE IF NOT EXISTS statement for the
// entity in the given dialect. Creation is a no-op when the table exists.
func CreateIfAbsent(e Entity, d dbdeploy.Dialect) (string, error) {
	if err := validateIdentifier(e.Name, "entity name"); err != nil {
		return "", err
	}

	var lines []string
	for _, c := range e.Columns {
		if err := validateIdentifier(c.Name, "column name"); err != nil {
			return "", fmt.Errorf("entity %s: %w", e.Name, err)
		}
		line, err := renderColumn(c, d)
		if err != nil {
			return "", fmt.Errorf("entity %s: %w", e.Name, err)
		}
		lines = append(lines, line)
	}

	if len(e.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(e.PrimaryKey, ", ")))
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", e.Name, strings.Join(lines, ",\n    "))
	if d == dbdeploy.DialectMySQL {
		stmt += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return stmt, nil
}

// DropIfExists renders a DROP TABLE IF EXISTS statement for the entity.
func DropIfExists(e Entity, d dbdeploy.Dialect) (string, error) {
	if err := validateIdentifier(e.Name, "entity name"); err != nil {
		return "", err
	}
	if d == dbdeploy.DialectPostgres {
		// CASCADE so referrers dropped later in reverse order cannot block.
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", e.Name), nil
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", e.Name), nil
}

func renderColumn(c Column, d dbdeploy.Dialect) (string, error) {
	typ, err := typeFor(c, d)
	if err != nil {
		return "", err
	}

	parts := []string{c.Name, typ}
	if c.Type != ColSerial {
		if c.NotNull {
			parts = append(parts, "NOT NULL")
		}
		if c.Unique {
			parts = append(parts, "UNIQUE")
		}
		if c.Default != "" {
			parts = append(parts, "DEFAULT "+renderDefault(c, d))
		}
	}
	if c.Ref != "" {
		if err := validateIdentifier(c.Ref, "referenced table"); err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("REFERENCES %s(id)", c.Ref))
	}
	return strings.Join(parts, " "), nil
}

func typeFor(c Column, d dbdeploy.Dialect) (string, error) {
	switch c.Type {
	case ColSerial:
		switch d {
		case dbdeploy.DialectSQLite:
			return "INTEGER PRIMARY KEY AUTOINCREMENT", nil
		case dbdeploy.DialectPostgres:
			return "SERIAL PRIMARY KEY", nil
		case dbdeploy.DialectMySQL:
			return "INT AUTO_INCREMENT PRIMARY KEY", nil
		}
	case ColInt:
		if d == dbdeploy.DialectMySQL {
			return "INT", nil
		}
		return "INTEGER", nil
	case ColText:
		return "TEXT", nil
	case ColVarchar:
		if d == dbdeploy.DialectSQLite {
			return "TEXT", nil
		}
		return fmt.Sprintf("VARCHAR(%d)", c.Size), nil
	case ColBool:
		return "BOOLEAN", nil
	case ColFloat:
		switch d {
		case dbdeploy.DialectSQLite:
			return "REAL", nil
		default:
			return "DOUBLE PRECISION", nil
		}
	case ColTimestamp:
		switch d {
		case dbdeploy.DialectSQLite:
			return "TIMESTAMP", nil
		case dbdeploy.DialectPostgres:
			return "TIMESTAMPTZ", nil
		case dbdeploy.DialectMySQL:
			return "DATETIME(6)", nil
		}
	}
	return "", fmt.Errorf("no %s rendering for column type %d", d, c.Type)
}

func renderDefault(c Column, d dbdeploy.Dialect) string {
	if c.Type == ColTimestamp && c.Default == DefaultNow {
		switch d {
		case dbdeploy.DialectPostgres:
			return "NOW()"
		case dbdeploy.DialectMySQL:
			return "CURRENT_TIMESTAMP(6)"
		default:
			return "CURRENT_TIMESTAMP"
		}
	}
	return c.Default
}
