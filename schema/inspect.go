package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/priceaction/dbdeploy"
)

// TableExists reports whether a table is present in the connected database.
func TableExists(ctx context.Context, db *sql.DB, d dbdeploy.Dialect, name string) (bool, error) {
	var query string
	switch d {
	case dbdeploy.DialectPostgres:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1"
	case dbdeploy.DialectMySQL:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	default:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}

	var count int
	if err := db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, fmt.Errorf("inspect table %s: %w", name, err)
	}
	return count > 0, nil
}

// TableColumns returns the column names of a table, in definition order.
func TableColumns(ctx context.Context, db *sql.DB, d dbdeploy.Dialect, name string) ([]string, error) {
	var query string
	switch d {
	case dbdeploy.DialectPostgres:
		query = "SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position"
	case dbdeploy.DialectMySQL:
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
	default:
		query = "SELECT name FROM pragma_table_info(?) ORDER BY cid"
	}

	rows, err := db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("inspect columns of %s: %w", name, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", name, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", name, err)
	}
	return columns, nil
}
