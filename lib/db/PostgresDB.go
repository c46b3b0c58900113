package db

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ether/etherdoc/lib/db/migrations"
	"github.com/ether/etherdoc/lib/models/db"
	_ "github.com/lib/pq"
)

type PostgresDB struct {
	options PostgresOptions
	sqlDB   *sql.DB
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (d PostgresDB) SaveDocument(documentID string, document db.DocumentDB) error {
	resultedSQL, args, err := psql.
		Insert("document").
		Columns("id", "version", "content").
		Values(documentID, document.Version, document.Content).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			content = excluded.content,
			updated_at = CURRENT_TIMESTAMP`).
		ToSql()

	if err != nil {
		return err
	}

	_, err = d.sqlDB.Exec(resultedSQL, args...)
	return err
}

func (d PostgresDB) GetDocument(documentID string) (*db.DocumentDB, error) {
	resultedSQL, args, err := psql.
		Select(documentColumns...).
		From("document").
		Where(sq.Eq{"id": documentID}).
		ToSql()

	if err != nil {
		return nil, err
	}

	document, err := ReadToDocumentDB(d.sqlDB.QueryRow(resultedSQL, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(DocumentDoesNotExistError)
		}
		return nil, err
	}
	return document, nil
}

func (d PostgresDB) DoesDocumentExist(documentID string) (*bool, error) {
	resultedSQL, args, err := psql.
		Select("1").
		From("document").
		Where(sq.Eq{"id": documentID}).
		Limit(1).
		ToSql()

	if err != nil {
		return nil, err
	}

	var exists int
	err = d.sqlDB.QueryRow(resultedSQL, args...).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		falseVal := false
		return &falseVal, nil
	}
	if err != nil {
		return nil, err
	}

	trueVal := true
	return &trueVal, nil
}

// RemoveDocument removes the document together with its comments.
func (d PostgresDB) RemoveDocument(documentID string) error {
	commentSQL, commentArgs, err := psql.
		Delete("document_comment").
		Where(sq.Eq{"document_id": documentID}).
		ToSql()
	if err != nil {
		return err
	}
	documentSQL, documentArgs, err := psql.
		Delete("document").
		Where(sq.Eq{"id": documentID}).
		ToSql()
	if err != nil {
		return err
	}

	tx, err := d.sqlDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(commentSQL, commentArgs...); err != nil {
		return err
	}
	result, err := tx.Exec(documentSQL, documentArgs...)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.New(DocumentDoesNotExistError)
	}
	return tx.Commit()
}

func (d PostgresDB) GetDocumentIds() (*[]string, error) {
	resultedSQL, _, err := psql.
		Select("id").
		From("document").
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	query, err := d.sqlDB.Query(resultedSQL)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	documentIds := make([]string, 0)
	for query.Next() {
		var documentId string
		if err := query.Scan(&documentId); err != nil {
			return nil, err
		}
		documentIds = append(documentIds, documentId)
	}
	return &documentIds, query.Err()
}

func (d PostgresDB) SaveComment(documentID string, comment db.CommentDB) error {
	resultedSQL, args, err := psql.
		Insert("document_comment").
		Columns(commentColumns...).
		Values(comment.ID, documentID, comment.Author, comment.Content, comment.Resolved,
			comment.Timestamp, comment.Text, comment.Anchor, comment.Replies).
		Suffix(`ON CONFLICT(document_id, id) DO UPDATE SET
			author = excluded.author,
			content = excluded.content,
			resolved = excluded.resolved,
			timestamp = excluded.timestamp,
			text = excluded.text,
			anchor = excluded.anchor,
			replies = excluded.replies`).
		ToSql()

	if err != nil {
		return err
	}

	_, err = d.sqlDB.Exec(resultedSQL, args...)
	return err
}

func (d PostgresDB) GetComments(documentID string) (*[]db.CommentDB, error) {
	resultedSQL, args, err := psql.
		Select(commentColumns...).
		From("document_comment").
		Where(sq.Eq{"document_id": documentID}).
		OrderBy("timestamp ASC", "id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	query, err := d.sqlDB.Query(resultedSQL, args...)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	comments := make([]db.CommentDB, 0)
	for query.Next() {
		comment, err := ReadToCommentDB(query)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *comment)
	}
	return &comments, query.Err()
}

func (d PostgresDB) RemoveComment(documentID string, commentID string) error {
	resultedSQL, args, err := psql.
		Delete("document_comment").
		Where(sq.Eq{"document_id": documentID, "id": commentID}).
		ToSql()

	if err != nil {
		return err
	}
	result, err := d.sqlDB.Exec(resultedSQL, args...)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.New(CommentNotFoundError)
	}
	return nil
}

// ============== SERVER METHODS ==============

// SaveServerVersion records the last version that ran against this database.
func (d PostgresDB) SaveServerVersion(version string) error {
	resultedSQL, args, err := psql.
		Insert("server_version").
		Columns("version").
		Values(version).
		Suffix("ON CONFLICT(version) DO UPDATE SET updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}
	_, err = d.sqlDB.Exec(resultedSQL, args...)
	return err
}

func (d PostgresDB) GetServerVersion() (*string, error) {
	resultedSQL, args, err := psql.
		Select("version").
		From("server_version").
		OrderBy("updated_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var version string
	err = d.sqlDB.QueryRow(resultedSQL, args...).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (d PostgresDB) Close() error {
	return d.sqlDB.Close()
}

type PostgresOptions struct {
	Username string
	Password string
	Port     int
	Host     string
	Database string
}

// NewPostgresDB This function creates a new PostgresDB and returns a pointer to it.
func NewPostgresDB(options PostgresOptions) (*PostgresDB, error) {
	dbUrl := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", options.Username, options.Password, options.Host, options.Port, options.Database)
	sqlDb, err := sql.Open("postgres", dbUrl)
	if err != nil {
		return nil, err
	}
	if err := sqlDb.Ping(); err != nil {
		sqlDb.Close()
		return nil, err
	}

	migrationManager := migrations.NewMigrationManager(sqlDb, migrations.DialectPostgres)
	if err := migrationManager.Run(); err != nil {
		sqlDb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresDB{
		options: options,
		sqlDB:   sqlDb,
	}, nil
}

var _ DataStore = (*PostgresDB)(nil)
