package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores blobs in a single-table SQLite database.
type SQLite struct {
	db      *sql.DB
	baseURL string
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path and ensures the schema.
// The caller should call Close when the store is no longer needed.
func NewSQLite(path, baseURL string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open blob database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			path         TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			data         BLOB NOT NULL,
			created_at   INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create blobs table: %w", err)
	}

	return &SQLite{db: db, baseURL: baseURL}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (path, content_type, data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data,
			created_at = excluded.created_at`,
		path, contentType, data, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", path, err)
	}
	return publicURL(s.baseURL, path), nil
}

func (s *SQLite) Get(ctx context.Context, path string) (*Object, error) {
	var (
		obj       = Object{Path: path}
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, data, created_at FROM blobs WHERE path = ?`, path,
	).Scan(&obj.ContentType, &obj.Data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", path, err)
	}
	obj.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &obj, nil
}
