package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/priceaction/dbdeploy"
	"github.com/priceaction/dbdeploy/schema"
)

// usersInitial is the users table as it was first shipped, before the
// full-name consolidation in step 4. Only the plan needs this shape; the
// declared baseline carries the head form.
var usersInitial = schema.Entity{
	Name: "users",
	Columns: []schema.Column{
		{Name: "id", Type: schema.ColSerial},
		{Name: "email", Type: schema.ColVarchar, Size: 255, NotNull: true, Unique: true},
		{Name: "first_name", Type: schema.ColVarchar, Size: 50},
		{Name: "last_name", Type: schema.ColVarchar, Size: 50},
		{Name: "hashed_password", Type: schema.ColVarchar, Size: 255, NotNull: true},
		{Name: "profile_picture", Type: schema.ColVarchar, Size: 255},
		{Name: "bio", Type: schema.ColText},
		{Name: "role", Type: schema.ColVarchar, Size: 20, NotNull: true, Default: "'user'"},
		{Name: "is_active", Type: schema.ColBool, NotNull: true, Default: "TRUE"},
		{Name: "is_verified", Type: schema.ColBool, NotNull: true, Default: "FALSE"},
		{Name: "created_at", Type: schema.ColTimestamp, NotNull: true, Default: schema.DefaultNow},
		{Name: "updated_at", Type: schema.ColTimestamp, NotNull: true, Default: schema.DefaultNow},
	},
}

// DefaultPlan returns the service's migration plan from an empty database to
// the current head. Creation steps use create-if-absent statements so a
// database initialized from the baseline declarations can still walk the
// plan without tripping over tables that already exist.
func DefaultPlan() Plan {
	return Plan{
		{
			Ordinal:     1,
			Description: "create core tables (users, categories, courses)",
			Up: execAll(func(d dbdeploy.Dialect) ([]string, error) {
				users, err := schema.CreateIfAbsent(usersInitial, d)
				if err != nil {
					return nil, err
				}
				rest, err := renderCreates(d, "categories", "courses", "course_category")
				if err != nil {
					return nil, err
				}
				return append([]string{users}, rest...), nil
			}),
			Down: dropEntities("users", "categories", "courses", "course_category"),
		},
		{
			Ordinal:     2,
			Description: "create content tables (chapters, lessons, progress, enrollments, reviews)",
			Up:          createEntities("chapters", "lessons", "user_lesson_progress", "enrollments", "reviews"),
			Down:        dropEntities("chapters", "lessons", "user_lesson_progress", "enrollments", "reviews"),
		},
		{
			Ordinal:     3,
			Description: "create commerce tables (wishlist, cart, orders)",
			Up:          createEntities("wishlist", "cart_items", "orders", "order_items"),
			Down:        dropEntities("wishlist", "cart_items", "orders", "order_items"),
		},
		{
			Ordinal:     4,
			Description: "consolidate users first_name/last_name into full_name",
			Up:          fullNameUp,
			Down:        fullNameDown,
		},
		{
			Ordinal:     5,
			Description: "create blog tables (blog_posts, comments)",
			Up:          createEntities("blog_posts", "comments"),
			Down:        dropEntities("blog_posts", "comments"),
		},
	}
}

func renderCreates(d dbdeploy.Dialect, names ...string) ([]string, error) {
	stmts := make([]string, 0, len(names))
	for _, name := range names {
		e, ok := schema.ByName(name)
		if !ok {
			return nil, fmt.Errorf("no declared entity %q", name)
		}
		stmt, err := schema.CreateIfAbsent(e, d)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// fullNameUp converts users from the first_name/last_name shape to a single
// full_name column, backfilling existing rows. A database already in the new
// shape (a fresh baseline, or a re-run) is left untouched.
func fullNameUp(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error {
	hasFull, err := columnExists(ctx, tx, d, "users", "full_name")
	if err != nil {
		return err
	}
	hasFirst, err := columnExists(ctx, tx, d, "users", "first_name")
	if err != nil {
		return err
	}
	if hasFull && !hasFirst {
		return nil
	}

	var stmts []string
	if !hasFull {
		if d == dbdeploy.DialectSQLite {
			stmts = append(stmts, "ALTER TABLE users ADD COLUMN full_name TEXT")
		} else {
			stmts = append(stmts, "ALTER TABLE users ADD COLUMN full_name VARCHAR(100)")
		}
	}

	// Join the two names with a space only when both are present.
	switch d {
	case dbdeploy.DialectMySQL:
		stmts = append(stmts, `UPDATE users
SET full_name = CONCAT(
    COALESCE(first_name, ''),
    CASE WHEN first_name IS NOT NULL AND last_name IS NOT NULL THEN ' ' ELSE '' END,
    COALESCE(last_name, ''))
WHERE full_name IS NULL`)
	default:
		stmts = append(stmts, `UPDATE users
SET full_name = COALESCE(first_name, '') ||
    CASE WHEN first_name IS NOT NULL AND last_name IS NOT NULL THEN ' ' ELSE '' END ||
    COALESCE(last_name, '')
WHERE full_name IS NULL`)
	}

	// SQLite cannot add NOT NULL to an existing column without a table
	// rebuild; it keeps the column nullable, as the service always has.
	switch d {
	case dbdeploy.DialectPostgres:
		stmts = append(stmts, "ALTER TABLE users ALTER COLUMN full_name SET NOT NULL")
	case dbdeploy.DialectMySQL:
		stmts = append(stmts, "ALTER TABLE users MODIFY full_name VARCHAR(100) NOT NULL")
	}

	stmts = append(stmts,
		"ALTER TABLE users DROP COLUMN first_name",
		"ALTER TABLE users DROP COLUMN last_name",
	)

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.60q: %w", stmt, err)
		}
	}
	return nil
}

// fullNameDown restores the split name columns, dividing full_name on its
// first space. The split is lossy for names with more than two parts; the
// structure is what the reversal guarantees.
func fullNameDown(ctx context.Context, tx *sql.Tx, d dbdeploy.Dialect) error {
	hasFirst, err := columnExists(ctx, tx, d, "users", "first_name")
	if err != nil {
		return err
	}
	if hasFirst {
		return nil
	}

	var stmts []string
	if d == dbdeploy.DialectSQLite {
		stmts = append(stmts,
			"ALTER TABLE users ADD COLUMN first_name TEXT",
			"ALTER TABLE users ADD COLUMN last_name TEXT",
		)
	} else {
		stmts = append(stmts,
			"ALTER TABLE users ADD COLUMN first_name VARCHAR(50)",
			"ALTER TABLE users ADD COLUMN last_name VARCHAR(50)",
		)
	}

	switch d {
	case dbdeploy.DialectPostgres:
		stmts = append(stmts, `UPDATE users
SET first_name = split_part(full_name, ' ', 1),
    last_name = CASE
        WHEN position(' ' in full_name) > 0 THEN substr(full_name, position(' ' in full_name) + 1)
        ELSE ''
    END`)
	case dbdeploy.DialectMySQL:
		stmts = append(stmts, `UPDATE users
SET first_name = SUBSTRING_INDEX(full_name, ' ', 1),
    last_name = CASE
        WHEN LOCATE(' ', full_name) > 0 THEN SUBSTRING(full_name, LOCATE(' ', full_name) + 1)
        ELSE ''
    END`)
	default:
		stmts = append(stmts, `UPDATE users
SET first_name = CASE
        WHEN instr(full_name, ' ') > 0 THEN substr(full_name, 1, instr(full_name, ' ') - 1)
        ELSE full_name
    END,
    last_name = CASE
        WHEN instr(full_name, ' ') > 0 THEN substr(full_name, instr(full_name, ' ') + 1)
        ELSE ''
    END`)
	}

	stmts = append(stmts, "ALTER TABLE users DROP COLUMN full_name")

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.60q: %w", stmt, err)
		}
	}
	return nil
}
