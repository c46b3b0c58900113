package migrations

import (
	"database/sql"
)

func migration002Comments() Migration {
	return Migration{
		Version:     2,
		Description: "Create document_comment table",
		Up: func(db *sql.DB, dialect Dialect) error {
			var queries []string
			switch dialect {
			case DialectPostgres:
				queries = []string{
					`CREATE TABLE IF NOT EXISTS document_comment (
						id TEXT NOT NULL,
						document_id TEXT NOT NULL REFERENCES document(id) ON DELETE CASCADE,
						author TEXT NOT NULL DEFAULT '',
						content TEXT NOT NULL DEFAULT '',
						resolved BOOLEAN NOT NULL DEFAULT FALSE,
						timestamp TEXT NOT NULL,
						text TEXT NOT NULL DEFAULT '',
						anchor TEXT NOT NULL,
						replies TEXT NOT NULL DEFAULT '[]',
						PRIMARY KEY (document_id, id)
					)`,
				}
			default:
				queries = []string{
					`CREATE TABLE IF NOT EXISTS document_comment (
						id TEXT NOT NULL,
						document_id TEXT NOT NULL REFERENCES document(id) ON DELETE CASCADE,
						author TEXT NOT NULL DEFAULT '',
						content TEXT NOT NULL DEFAULT '',
						resolved INTEGER NOT NULL DEFAULT 0,
						timestamp TEXT NOT NULL,
						text TEXT NOT NULL DEFAULT '',
						anchor TEXT NOT NULL,
						replies TEXT NOT NULL DEFAULT '[]',
						PRIMARY KEY (document_id, id)
					)`,
				}
			}
			queries = append(queries,
				`CREATE INDEX IF NOT EXISTS idx_document_comment_document ON document_comment(document_id)`)

			return execAll(db, queries)
		},
	}
}
