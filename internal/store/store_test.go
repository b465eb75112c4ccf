package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend keeps the document in memory and can be told to fail saves.
type fakeBackend struct {
	mu       sync.Mutex
	doc      *Document
	saves    int
	failSave error
	failLoad error
	closed   bool
}

func (b *fakeBackend) Load(context.Context) (*Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failLoad != nil {
		return nil, b.failLoad
	}
	if b.doc == nil {
		return nil, nil
	}
	return b.doc.Clone(), nil
}

func (b *fakeBackend) Save(_ context.Context, doc *Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSave != nil {
		return b.failSave
	}
	b.saves++
	b.doc = doc.Clone()
	return nil
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

// stepClock returns a clock advancing one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func widget(sku string) ProductFields {
	return ProductFields{Name: "Widget", SKU: sku, Category: "Tools", Quantity: intPtr(5), Price: floatPtr(9.99)}
}

func openSeeded(t *testing.T) (*Store, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{}
	s, err := Open(context.Background(), b, WithClock(stepClock()))
	require.NoError(t, err)
	return s, b
}

func TestOpen_Repair(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		doc          *Document
		raw          string
		wantCount    int
		wantNextID   int64
		wantReseeded bool
		wantRepaired bool
		wantSaves    int
	}{
		{
			name:         "missing document is seeded",
			doc:          nil,
			wantCount:    20,
			wantNextID:   21,
			wantReseeded: true,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "empty collection is seeded",
			doc:          &Document{Products: []Product{}, NextID: NewCounter(500)},
			wantCount:    20,
			wantNextID:   21,
			wantReseeded: true,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "stale counter is raised above max id",
			doc:          &Document{Products: []Product{{ID: "35", SKU: "A"}, {ID: "2", SKU: "B"}}, NextID: NewCounter(10)},
			wantCount:    2,
			wantNextID:   36,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:       "consistent counter is kept",
			doc:        &Document{Products: []Product{{ID: "3", SKU: "A"}}, NextID: NewCounter(4)},
			wantCount:  1,
			wantNextID: 4,
		},
		{
			name:       "counter ahead of ids is kept",
			doc:        &Document{Products: []Product{{ID: "3", SKU: "A"}}, NextID: NewCounter(90)},
			wantCount:  1,
			wantNextID: 90,
		},
		{
			name:         "unusable counter is recomputed",
			doc:          &Document{Products: []Product{{ID: "7", SKU: "A"}}},
			wantCount:    1,
			wantNextID:   8,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "products object is reseeded",
			raw:          `{"products":{},"nextId":10}`,
			wantCount:    20,
			wantNextID:   21,
			wantReseeded: true,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "products string is reseeded",
			raw:          `{"products":"none","nextId":3}`,
			wantCount:    20,
			wantNextID:   21,
			wantReseeded: true,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "document that is not an object is reseeded",
			raw:          `[1,2,3]`,
			wantCount:    20,
			wantNextID:   21,
			wantReseeded: true,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "numeric ids count toward the counter",
			raw:          `{"products":[{"id":35,"sku":"A"},{"id":"2","sku":"B"}],"nextId":10}`,
			wantCount:    2,
			wantNextID:   36,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "fractional counter is rounded up and rewritten",
			raw:          `{"products":[{"id":"35","sku":"A"}],"nextId":40.5}`,
			wantCount:    1,
			wantNextID:   41,
			wantRepaired: true,
			wantSaves:    1,
		},
		{
			name:         "non-numeric ids do not constrain the counter",
			doc:          &Document{Products: []Product{{ID: "abc", SKU: "A"}, {ID: "9z", SKU: "B"}}},
			wantCount:    2,
			wantNextID:   1,
			wantRepaired: true,
			wantSaves:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			doc := tt.doc
			if tt.raw != "" {
				var err error
				doc, err = UnmarshalDocument([]byte(tt.raw))
				require.NoError(t, err)
			}
			b := &fakeBackend{doc: doc}

			// when
			s, err := Open(ctx, b, WithClock(stepClock()))

			// then
			require.NoError(t, err)
			h := s.Health()
			assert.Equal(t, tt.wantCount, h.ProductCount)
			assert.Equal(t, tt.wantNextID, h.NextID)
			assert.Equal(t, tt.wantReseeded, h.ReseededProducts)
			assert.Equal(t, tt.wantRepaired, h.NextIDRepaired)
			assert.Equal(t, "2024-01-01T12:00:01.000Z", h.StartupTime)
			assert.Equal(t, tt.wantSaves, b.saves)
			if tt.wantSaves > 0 {
				assert.Equal(t, NewCounter(tt.wantNextID), b.doc.NextID)
			}
		})
	}
}

func TestOpen_SeedTimestampsAndIDs(t *testing.T) {
	s, _ := openSeeded(t)

	products := s.List(context.Background())
	require.Len(t, products, 20)
	for i, p := range products {
		assert.Equal(t, strconv.Itoa(i+1), p.ID)
		assert.Equal(t, "2024-01-01T12:00:01.000Z", p.CreatedAt)
		assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	}
	assert.Equal(t, "Apple iPhone 15 Pro", products[0].Name)
	assert.Equal(t, "STAT-001", products[19].SKU)
}

func TestOpen_WithSeed(t *testing.T) {
	seed := []Product{{ID: "1", Name: "Only", SKU: "O-1", Category: "C", Quantity: 1, Price: 1}}
	s, err := Open(context.Background(), &fakeBackend{}, WithSeed(seed), WithClock(stepClock()))
	require.NoError(t, err)

	h := s.Health()
	assert.Equal(t, 1, h.ProductCount)
	assert.EqualValues(t, 2, h.NextID)
	p, err := s.FindByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T12:00:01.000Z", p.CreatedAt)
	assert.Empty(t, seed[0].CreatedAt)
}

func TestOpen_Errors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		_, err := Open(context.Background(), &fakeBackend{failLoad: errors.New("disk gone")})
		require.ErrorIs(t, err, ierrors.ErrPersistence)
	})
	t.Run("repair save failure", func(t *testing.T) {
		_, err := Open(context.Background(), &fakeBackend{failSave: errors.New("read-only")})
		require.ErrorIs(t, err, ierrors.ErrPersistence)
	})
}

func TestStore_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id from counter and persists", func(t *testing.T) {
		// given
		s, b := openSeeded(t)
		savesBefore := b.saves

		// when
		p, err := s.Insert(ctx, widget("W-1"))

		// then
		require.NoError(t, err)
		assert.Equal(t, "21", p.ID)
		assert.Equal(t, p.CreatedAt, p.UpdatedAt)
		assert.Equal(t, 5, p.Quantity)
		assert.Equal(t, "", p.Description)
		assert.EqualValues(t, 22, s.Health().NextID)
		assert.Equal(t, savesBefore+1, b.saves)
		assert.Len(t, b.doc.Products, 21)
		assert.Equal(t, NewCounter(22), b.doc.NextID)
	})

	t.Run("ids are strictly increasing", func(t *testing.T) {
		s, _ := openSeeded(t)
		last := int64(20)
		for i := 0; i < 5; i++ {
			p, err := s.Insert(ctx, widget("W-"+strconv.Itoa(i)))
			require.NoError(t, err)
			id, err := strconv.ParseInt(p.ID, 10, 64)
			require.NoError(t, err)
			assert.Greater(t, id, last)
			last = id
		}
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		s, _ := openSeeded(t)
		p, err := s.Insert(ctx, widget("W-1"))
		require.NoError(t, err)
		_, err = s.Delete(ctx, p.ID)
		require.NoError(t, err)

		p2, err := s.Insert(ctx, widget("W-1"))
		require.NoError(t, err)
		assert.Equal(t, "22", p2.ID)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		s, b := openSeeded(t)
		savesBefore := b.saves

		_, err := s.Insert(ctx, widget("ELEC-001"))

		require.ErrorIs(t, err, ierrors.ErrDuplicateSKU)
		assert.Len(t, s.List(ctx), 20)
		assert.EqualValues(t, 21, s.Health().NextID)
		assert.Equal(t, savesBefore, b.saves)
	})

	t.Run("sku match is case-sensitive", func(t *testing.T) {
		s, _ := openSeeded(t)
		_, err := s.Insert(ctx, widget("elec-001"))
		require.NoError(t, err)
	})

	t.Run("persistence failure leaves state unchanged", func(t *testing.T) {
		s, b := openSeeded(t)
		b.failSave = errors.New("disk full")

		_, err := s.Insert(ctx, widget("W-1"))

		require.ErrorIs(t, err, ierrors.ErrPersistence)
		assert.Len(t, s.List(ctx), 20)
		assert.EqualValues(t, 21, s.Health().NextID)
		_, err = s.FindBySKU(ctx, "W-1")
		require.ErrorIs(t, err, ierrors.ErrProductNotFound)
	})
}

func TestStore_Insert_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProductFields)
	}{
		{"missing name", func(f *ProductFields) { f.Name = "" }},
		{"missing sku", func(f *ProductFields) { f.SKU = "" }},
		{"missing category", func(f *ProductFields) { f.Category = "" }},
		{"missing quantity", func(f *ProductFields) { f.Quantity = nil }},
		{"missing price", func(f *ProductFields) { f.Price = nil }},
		{"negative quantity", func(f *ProductFields) { f.Quantity = intPtr(-1) }},
		{"negative price", func(f *ProductFields) { f.Price = floatPtr(-0.01) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			s, _ := openSeeded(t)
			fields := widget("W-1")
			tt.mutate(&fields)

			// when
			_, err := s.Insert(context.Background(), fields)

			// then
			require.ErrorIs(t, err, ierrors.ErrValidation)
			assert.Len(t, s.List(context.Background()), 20)
		})
	}
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("success refreshes updated_at", func(t *testing.T) {
		s, _ := openSeeded(t)

		prev, p, err := s.UpdateQuantity(ctx, "1", 0)

		require.NoError(t, err)
		assert.Equal(t, 12, prev.Quantity)
		assert.Equal(t, prev.UpdatedAt, prev.CreatedAt)
		assert.Equal(t, 0, p.Quantity)
		assert.Greater(t, p.UpdatedAt, p.CreatedAt)
		got, err := s.FindByID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, *p, *got)
	})

	t.Run("negative quantity is rejected without change", func(t *testing.T) {
		s, _ := openSeeded(t)
		before, err := s.FindByID(ctx, "1")
		require.NoError(t, err)

		_, _, err = s.UpdateQuantity(ctx, "1", -3)

		require.ErrorIs(t, err, ierrors.ErrValidation)
		after, err := s.FindByID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, before.Quantity, after.Quantity)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	})

	t.Run("validation precedes lookup", func(t *testing.T) {
		s, _ := openSeeded(t)
		_, _, err := s.UpdateQuantity(ctx, "999", -1)
		require.ErrorIs(t, err, ierrors.ErrValidation)
	})

	t.Run("not found", func(t *testing.T) {
		s, _ := openSeeded(t)
		_, _, err := s.UpdateQuantity(ctx, "999", 1)
		require.ErrorIs(t, err, ierrors.ErrProductNotFound)
	})

	t.Run("persistence failure", func(t *testing.T) {
		s, b := openSeeded(t)
		b.failSave = errors.New("io")

		_, _, err := s.UpdateQuantity(ctx, "1", 99)

		require.ErrorIs(t, err, ierrors.ErrPersistence)
		p, _ := s.FindByID(ctx, "1")
		assert.Equal(t, 12, p.Quantity)
	})
}

func TestStore_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("keeping own sku succeeds", func(t *testing.T) {
		s, _ := openSeeded(t)
		before, _ := s.FindByID(ctx, "2")
		fields := widget("ELEC-002")
		fields.Description = "updated"

		p, err := s.Replace(ctx, "2", fields)

		require.NoError(t, err)
		assert.Equal(t, "2", p.ID)
		assert.Equal(t, "Widget", p.Name)
		assert.Equal(t, "updated", p.Description)
		assert.Equal(t, before.CreatedAt, p.CreatedAt)
		assert.Greater(t, p.UpdatedAt, before.UpdatedAt)
	})

	t.Run("missing description becomes empty", func(t *testing.T) {
		s, _ := openSeeded(t)
		p, err := s.Replace(ctx, "3", widget("ELEC-003"))
		require.NoError(t, err)
		assert.Equal(t, "", p.Description)
	})

	t.Run("sku of another record conflicts", func(t *testing.T) {
		s, _ := openSeeded(t)
		_, err := s.Replace(ctx, "2", widget("ELEC-001"))
		require.ErrorIs(t, err, ierrors.ErrDuplicateSKU)
		p, _ := s.FindByID(ctx, "2")
		assert.Equal(t, "ELEC-002", p.SKU)
	})

	t.Run("not found", func(t *testing.T) {
		s, _ := openSeeded(t)
		_, err := s.Replace(ctx, "404", widget("ELEC-001"))
		require.ErrorIs(t, err, ierrors.ErrProductNotFound)
	})

	t.Run("invalid fields", func(t *testing.T) {
		s, _ := openSeeded(t)
		f := widget("X")
		f.Quantity = intPtr(-1)
		_, err := s.Replace(ctx, "1", f)
		require.ErrorIs(t, err, ierrors.ErrValidation)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, b := openSeeded(t)

	removed, err := s.Delete(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "SHOE-001", removed.SKU)
	_, err = s.FindByID(ctx, "5")
	require.ErrorIs(t, err, ierrors.ErrProductNotFound)
	assert.Len(t, b.doc.Products, 19)

	_, err = s.Delete(ctx, "5")
	require.ErrorIs(t, err, ierrors.ErrProductNotFound)

	b.failSave = errors.New("io")
	_, err = s.Delete(ctx, "6")
	require.ErrorIs(t, err, ierrors.ErrPersistence)
	_, err = s.FindByID(ctx, "6")
	require.NoError(t, err)
}

func TestStore_Queries(t *testing.T) {
	ctx := context.Background()
	s, _ := openSeeded(t)

	p, err := s.FindBySKU(ctx, "SHOE-002")
	require.NoError(t, err)
	assert.Equal(t, "6", p.ID)

	_, err = s.FindBySKU(ctx, "shoe-002")
	require.ErrorIs(t, err, ierrors.ErrProductNotFound)

	footwear := s.Filter(ctx, func(p Product) bool { return p.Category == "Footwear" })
	assert.Len(t, footwear, 2)

	none := s.Filter(ctx, func(Product) bool { return false })
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := openSeeded(t)

	list := s.List(ctx)
	list[0].Name = "mutated"
	p, _ := s.FindByID(ctx, "1")
	p.Quantity = 1000

	again, _ := s.FindByID(ctx, "1")
	assert.Equal(t, "Apple iPhone 15 Pro", again.Name)
	assert.Equal(t, 12, again.Quantity)
}

func TestStore_ReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	s, b := openSeeded(t)
	_, err := s.Insert(ctx, widget("W-1"))
	require.NoError(t, err)

	reopened, err := Open(ctx, b, WithClock(stepClock()))
	require.NoError(t, err)

	assert.Equal(t, s.List(ctx), reopened.List(ctx))
	h := reopened.Health()
	assert.EqualValues(t, 22, h.NextID)
	assert.False(t, h.ReseededProducts)
	assert.False(t, h.NextIDRepaired)
}

func TestStore_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s, _ := openSeeded(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Insert(ctx, widget("C-"+strconv.Itoa(i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	products := s.List(ctx)
	require.Len(t, products, 40)
	seen := map[string]bool{}
	for _, p := range products {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.EqualValues(t, 41, s.Health().NextID)
}

func TestStore_Close(t *testing.T) {
	s, b := openSeeded(t)
	require.NoError(t, s.Close())
	assert.True(t, b.closed)
}
