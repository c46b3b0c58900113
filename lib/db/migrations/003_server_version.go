package migrations

import (
	"database/sql"
)

func migration003ServerVersion() Migration {
	return Migration{
		Version:     3,
		Description: "Create server_version table",
		Up: func(db *sql.DB, dialect Dialect) error {
			query := `CREATE TABLE IF NOT EXISTS server_version (
				version TEXT PRIMARY KEY,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`

			_, err := db.Exec(query)
			return err
		},
	}
}
