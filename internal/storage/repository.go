// Package storage persists the ledger snapshot document in a local
// SQLite database. The schema is deliberately a single-row blob table:
// the ledger is saved and loaded whole (write-through, last write wins),
// never decomposed relationally.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot overwrites the stored document.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, document []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, document, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP`,
		string(document),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved", "bytes", len(document))
	return nil
}

// LoadSnapshot returns the stored document. ok is false on a fresh
// database with no snapshot yet.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (document []byte, ok bool, err error) {
	var doc string
	err = r.db.QueryRowContext(ctx, `SELECT document FROM snapshots WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	return []byte(doc), true, nil
}
