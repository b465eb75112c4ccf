// Package sqlitedb stores the inventory document as a single row in an SQLite table.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abgdnv/inventory/internal/store"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const documentName = "inventory"

// DB implements store.Backend with modernc.org/sqlite.
type DB struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// New opens (or creates) the database at path and ensures the documents table exists.
func New(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = "inventory.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &DB{db: db, path: path, now: time.Now}, nil
}

// Load reads the inventory row.
// Returns a nil document if the row does not exist yet.
func (d *DB) Load(ctx context.Context) (*store.Document, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, documentName).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc, err := store.UnmarshalDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Save upserts the inventory row and stamps updated_at.
func (d *DB) Save(ctx context.Context, doc *store.Document) error {
	payload, err := store.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO documents(name, payload, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		documentName, payload, d.now().UTC().Format(store.TimeLayout))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Path returns the configured database path.
func (d *DB) Path() string { return d.path }
