package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/ether/etherdoc/lib/db/migrations"
	"github.com/ether/etherdoc/lib/models/db"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	path  string
	sqlDB *sql.DB
}

// ============== DOCUMENT METHODS ==============

func (d SQLiteDB) SaveDocument(documentID string, document db.DocumentDB) error {
	resultedSQL, args, err := sq.
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

func (d SQLiteDB) GetDocument(documentID string) (*db.DocumentDB, error) {
	resultedSQL, args, err := sq.
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

func (d SQLiteDB) DoesDocumentExist(documentID string) (*bool, error) {
	resultedSQL, args, err := sq.
		Select("1").
		From("document").
		Where(sq.Eq{"id": documentID}).
		Limit(1).
		ToSql()

	if err != nil {
		return nil, err
	}

	row := d.sqlDB.QueryRow(resultedSQL, args...)
	var exists int
	err = row.Scan(&exists)

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
func (d SQLiteDB) RemoveDocument(documentID string) error {
	commentSQL, commentArgs, err := sq.
		Delete("document_comment").
		Where(sq.Eq{"document_id": documentID}).
		ToSql()
	if err != nil {
		return err
	}
	documentSQL, documentArgs, err := sq.
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

func (d SQLiteDB) GetDocumentIds() (*[]string, error) {
	resultedSQL, _, err := sq.
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

// ============== COMMENT METHODS ==============

func (d SQLiteDB) SaveComment(documentID string, comment db.CommentDB) error {
	resultedSQL, args, err := sq.
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

func (d SQLiteDB) GetComments(documentID string) (*[]db.CommentDB, error) {
	resultedSQL, args, err := sq.
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

func (d SQLiteDB) RemoveComment(documentID string, commentID string) error {
	resultedSQL, args, err := sq.
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
func (d SQLiteDB) SaveServerVersion(version string) error {
	resultedSQL, args, err := sq.
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

func (d SQLiteDB) GetServerVersion() (*string, error) {
	resultedSQL, args, err := sq.
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

// ============== LIFECYCLE ==============

func (d SQLiteDB) Close() error {
	return d.sqlDB.Close()
}

// NewSQLiteDB creates a new SQLiteDB and returns a pointer to it.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if path == ":memory" {
		path = "file::memory:?cache=shared"
	}

	sqlDb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if strings.Contains(path, ":memory:") {
		sqlDb.SetMaxOpenConns(1)
	}

	if _, err = sqlDb.Exec("PRAGMA journal_mode = WAL"); err != nil {
		sqlDb.Close()
		return nil, err
	}
	if _, err = sqlDb.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDb.Close()
		return nil, err
	}
	if _, err = sqlDb.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDb.Close()
		return nil, err
	}

	migrationManager := migrations.NewMigrationManager(sqlDb, migrations.DialectSQLite)
	if err := migrationManager.Run(); err != nil {
		sqlDb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteDB{
		path:  path,
		sqlDB: sqlDb,
	}, nil
}

var _ DataStore = (*SQLiteDB)(nil)
