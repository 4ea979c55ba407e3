package history

import (
	"database/sql"
	"fmt"
)

// Migration adds one column to an existing table. Additive column
// migrations keep old databases readable without a version table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after the initial schema.
var pendingMigrations = []Migration{
	{Table: "executions", Column: "script", Def: "script TEXT"},
}

func runMigrations(db *sql.DB) error {
	for _, m := range pendingMigrations {
		exists, err := columnExists(db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", m.Table, m.Def)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.Table, m.Column, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	return count > 0, nil
}
