package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements DocumentStore using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreateRecord inserts a new document under a generated UUID.
func (s *SQLiteStore) CreateRecord(
	ctx context.Context,
	collection string,
	data []byte,
) (string, error) {
	id := uuid.New().String()
	now := time.Now().UnixMilli()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, seq, data, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents), ?, ?, ?)`,
		collection, id, string(data), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("creating %s record: %w", collection, err)
	}
	return id, nil
}

// GetRecord retrieves a single document.
func (s *SQLiteStore) GetRecord(
	ctx context.Context,
	collection, id string,
) ([]byte, error) {
	var data string
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting %s record %s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s record %s: %w", collection, id, err)
	}
	return []byte(data), nil
}

// ListRecords returns every document in the collection in insertion order.
func (s *SQLiteStore) ListRecords(
	ctx context.Context,
	collection string,
) ([]Document, error) {
	var docs []Document
	err := s.db.SelectContext(ctx, &docs,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY seq",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", collection, err)
	}
	return docs, nil
}

// UpdateRecord merges partial into the stored document inside a transaction.
func (s *SQLiteStore) UpdateRecord(
	ctx context.Context,
	collection, id string,
	partial map[string]any,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.GetContext(ctx, &data,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating %s record %s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading %s record %s: %w", collection, id, err)
	}

	merged, err := mergeFields([]byte(data), partial)
	if err != nil {
		return fmt.Errorf("updating %s record %s: %w", collection, id, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(merged), time.Now().UnixMilli(), collection, id,
	)
	if err != nil {
		return fmt.Errorf("updating %s record %s: %w", collection, id, err)
	}

	return tx.Commit()
}

// DeleteRecord removes a document by id.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("deleting %s record %s: %w", collection, id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting %s record %s: %w", collection, id, ErrNotFound)
	}
	return nil
}
