package filedb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/abgdnv/inventory/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *FileDB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "inventory.json"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return db
}

func TestFileDB_LoadMissing(t *testing.T) {
	db := newTestDB(t)

	doc, err := db.Load(context.Background())

	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileDB_SaveAndLoad(t *testing.T) {
	// given
	ctx := context.Background()
	db := newTestDB(t)
	doc := &store.Document{
		Products: []store.Product{{ID: "1", Name: "Widget", SKU: "W-1", Category: "Tools", Quantity: 5, Price: 9.99}},
		NextID:   store.NewCounter(2),
	}

	// when
	require.NoError(t, db.Save(ctx, doc))
	loaded, err := db.Load(ctx)

	// then
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
	entries, err := os.ReadDir(filepath.Dir(db.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileDB_ReadsOriginalLayout(t *testing.T) {
	db := newTestDB(t)
	raw := `{
  "products": [
    {"id": "1", "name": "Apple iPhone 15 Pro", "sku": "ELEC-001", "category": "Electronics",
     "quantity": 12, "price": 999.99, "description": "", "created_at": "2024-01-01T00:00:00.000Z",
     "updated_at": "2024-01-01T00:00:00.000Z"}
  ],
  "nextId": "2"
}`
	require.NoError(t, os.WriteFile(db.Path(), []byte(raw), 0o600))

	doc, err := db.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, doc.Products, 1)
	assert.Equal(t, "ELEC-001", doc.Products[0].SKU)
	assert.Equal(t, store.NewCounter(2), doc.NextID)
}

func TestFileDB_CorruptFile(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, os.WriteFile(db.Path(), []byte("{not json"), 0o600))

	_, err := db.Load(context.Background())

	require.Error(t, err)
}

func TestFileDB_WithStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	s, err := store.Open(ctx, db)
	require.NoError(t, err)
	assert.True(t, s.Health().ReseededProducts)

	reopened, err := store.Open(ctx, db)
	require.NoError(t, err)
	assert.False(t, reopened.Health().ReseededProducts)
	assert.Equal(t, s.List(ctx), reopened.List(ctx))
}

func TestFileDB_MalformedDocumentIsRepaired(t *testing.T) {
	testCases := []struct {
		name         string
		content      string
		wantReseeded bool
		wantNextID   int64
		wantIDs      []string
	}{
		{
			name:         "products is an object",
			content:      `{"products":{},"nextId":10}`,
			wantReseeded: true,
			wantNextID:   21,
		},
		{
			name:       "numeric product id",
			content:    `{"products":[{"id":35,"name":"Old","sku":"OLD-35","category":"Misc","quantity":1,"price":1}],"nextId":10}`,
			wantNextID: 36,
			wantIDs:    []string{"35"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			db := newTestDB(t)
			require.NoError(t, os.WriteFile(db.Path(), []byte(tc.content), 0o600))

			// when
			s, err := store.Open(ctx, db)

			// then
			require.NoError(t, err)
			h := s.Health()
			assert.Equal(t, tc.wantReseeded, h.ReseededProducts)
			assert.True(t, h.NextIDRepaired)
			assert.Equal(t, tc.wantNextID, h.NextID)
			if tc.wantIDs != nil {
				var ids []string
				for _, p := range s.List(ctx) {
					ids = append(ids, p.ID)
				}
				assert.Equal(t, tc.wantIDs, ids)
			}

			saved, err := os.ReadFile(db.Path())
			require.NoError(t, err)
			assert.Contains(t, string(saved), `"nextId": `+strconv.FormatInt(tc.wantNextID, 10))
		})
	}
}
