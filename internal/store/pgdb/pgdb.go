// Package pgdb stores the inventory document as a JSONB row in PostgreSQL.
package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/inventory/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentName = "inventory"

// PgDB implements store.Backend using a pgx connection pool.
type PgDB struct {
	db *pgxpool.Pool
}

// New returns a backend using pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *PgDB {
	return &PgDB{db: pool}
}

// Load reads the inventory row.
// Returns a nil document if the row does not exist yet.
func (p *PgDB) Load(ctx context.Context) (*store.Document, error) {
	var payload []byte
	err := p.db.QueryRow(ctx, `SELECT payload FROM inventory_documents WHERE name = $1`, documentName).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	doc, err := store.UnmarshalDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// Save upserts the inventory row, replacing the whole payload.
func (p *PgDB) Save(ctx context.Context, doc *store.Document) error {
	payload, err := store.MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = p.db.Exec(ctx,
		`INSERT INTO inventory_documents (name, payload, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		documentName, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Close closes the pool.
func (p *PgDB) Close() error {
	p.db.Close()
	return nil
}
