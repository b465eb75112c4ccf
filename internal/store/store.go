// Package store provides the inventory record store: an in-memory product collection with a
// numeric id counter, persisted as a single document through a pluggable Backend.
package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	ierrors "github.com/abgdnv/inventory/internal/errors"
)

// Backend is the durable home of the store document.
type Backend interface {
	// Load returns the persisted document, or nil if nothing has been saved yet.
	Load(ctx context.Context) (*Document, error)
	// Save replaces the persisted document.
	Save(ctx context.Context, doc *Document) error
	// Close releases the backend's resources.
	Close() error
}

// ProductStore is the record store contract used by the service layer.
type ProductStore interface {
	// List returns all products in store order.
	List(ctx context.Context) []Product

	// Filter returns the products matching pred in store order.
	Filter(ctx context.Context, pred func(Product) bool) []Product

	// FindByID returns the product with the given id.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindBySKU returns the product with the given SKU (case-sensitive).
	// Returns ErrProductNotFound if no product has the SKU.
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// Insert validates fields, assigns the next id and persists the new product.
	// Returns ErrValidation, ErrDuplicateSKU or ErrPersistence.
	Insert(ctx context.Context, fields ProductFields) (*Product, error)

	// UpdateQuantity sets the quantity of a product and returns the record before and after the change.
	// Returns ErrValidation, ErrProductNotFound or ErrPersistence.
	UpdateQuantity(ctx context.Context, id string, quantity int) (before, after *Product, err error)

	// Replace overwrites every mutable field of a product.
	// Returns ErrValidation, ErrProductNotFound, ErrDuplicateSKU or ErrPersistence.
	Replace(ctx context.Context, id string, fields ProductFields) (*Product, error)

	// Delete removes a product and returns the removed record.
	// Returns ErrProductNotFound or ErrPersistence.
	Delete(ctx context.Context, id string) (*Product, error)

	// Health returns the startup repair flags and current counters.
	Health() Health
}

// Store implements ProductStore. All operations are serialised by a single mutex,
// so at most one read or write touches the collection at a time.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     *Document
	now     func() time.Time
	logger  *slog.Logger
	seed    func(now string) []Product

	startupTime string
	reseeded    bool
	repaired    bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSeed replaces the default catalogue used to repopulate an empty store.
// Seed timestamps are overwritten with the open time.
func WithSeed(products []Product) Option {
	return func(s *Store) {
		s.seed = func(now string) []Product {
			out := make([]Product, len(products))
			for i, p := range products {
				p.CreatedAt, p.UpdatedAt = now, now
				out[i] = p
			}
			return out
		}
	}
}

// Open loads the document from backend, repairs it and returns a ready store.
// An empty or missing collection is reseeded. A nextId that does not exceed every
// numeric id, or that is unusable, is recomputed. Repairs are persisted before Open returns.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		seed:    seedProducts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startupTime = formatTime(s.now())

	doc, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %v", ierrors.ErrPersistence, err)
	}
	if doc == nil {
		doc = &Document{}
	}

	dirty := false
	if len(doc.Products) == 0 {
		doc.Products = s.seed(s.startupTime)
		doc.NextID = NewCounter(int64(len(doc.Products)) + 1)
		s.reseeded, s.repaired, dirty = true, true, true
		s.logger.InfoContext(ctx, "store reseeded", "product_count", len(doc.Products))
	} else {
		safe := safeNextID(doc.Products, doc.NextID)
		if !doc.NextID.Exact() || doc.NextID.Value != safe {
			s.logger.WarnContext(ctx, "nextId repaired", "stored", doc.NextID, "repaired", safe)
			doc.NextID = NewCounter(safe)
			s.repaired, dirty = true, true
		}
	}

	if dirty {
		if err := backend.Save(ctx, doc); err != nil {
			return nil, fmt.Errorf("%w: save repaired document: %v", ierrors.ErrPersistence, err)
		}
	}
	s.doc = doc
	s.logger.InfoContext(ctx, "store opened", "product_count", len(doc.Products), "next_id", doc.NextID.Value)
	return s, nil
}

// safeNextID returns max(maxNumericID+1, stored) where an unusable stored counter counts as 1.
func safeNextID(products []Product, stored Counter) int64 {
	var maxID int64
	for _, p := range products {
		if v, ok := parseNumericID(p.ID); ok && v > maxID {
			maxID = v
		}
	}
	storedVal := int64(1)
	if stored.Valid && stored.Value > 0 {
		storedVal = stored.Value
	}
	return max(maxID+1, storedVal)
}

// List returns a copy of all products in store order.
func (s *Store) List(_ context.Context) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, len(s.doc.Products))
	copy(out, s.doc.Products)
	return out
}

// Filter returns copies of the products matching pred, in store order.
// pred runs with the store locked and must not call back into the store.
func (s *Store) Filter(_ context.Context, pred func(Product) bool) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(s.doc.Products))
	for _, p := range s.doc.Products {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// FindByID returns a copy of the product with the given id.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Store) FindByID(_ context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByID(id)
	if i < 0 {
		return nil, ierrors.ErrProductNotFound
	}
	p := s.doc.Products[i]
	return &p, nil
}

// FindBySKU returns a copy of the product with exactly the given SKU.
// Returns ErrProductNotFound if no product has the SKU.
func (s *Store) FindBySKU(_ context.Context, sku string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.doc.Products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, ierrors.ErrProductNotFound
}

// Insert validates fields, assigns the next id and persists the new product.
// Returns ErrValidation for missing or negative fields, ErrDuplicateSKU if the SKU is taken
// and ErrPersistence if the document could not be saved.
func (s *Store) Insert(ctx context.Context, fields ProductFields) (*Product, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.skuTaken(fields.SKU, "") {
		return nil, fmt.Errorf("%w: %s", ierrors.ErrDuplicateSKU, fields.SKU)
	}

	next := s.doc.Clone()
	now := formatTime(s.now())
	id := next.NextID.Value
	product := Product{
		ID:          strconv.FormatInt(id, 10),
		Name:        fields.Name,
		SKU:         fields.SKU,
		Category:    fields.Category,
		Quantity:    *fields.Quantity,
		Price:       *fields.Price,
		Description: fields.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	next.Products = append(next.Products, product)
	next.NextID = NewCounter(id + 1)

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateQuantity sets the quantity of a product and refreshes its updated_at.
// The returned records are read under the same lock as the write.
// Returns ErrValidation if quantity is negative, ErrProductNotFound if no product exists
// with the given ID and ErrPersistence if the document could not be saved.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) (*Product, *Product, error) {
	if quantity < 0 {
		return nil, nil, fmt.Errorf("%w: quantity must be a non-negative number", ierrors.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return nil, nil, ierrors.ErrProductNotFound
	}
	before := s.doc.Products[i]
	next := s.doc.Clone()
	p := &next.Products[i]
	p.Quantity = quantity
	p.UpdatedAt = formatTime(s.now())

	if err := s.commit(ctx, next); err != nil {
		return nil, nil, err
	}
	after := *p
	return &before, &after, nil
}

// Replace overwrites every mutable field of a product, keeping its id and created_at.
// Returns ErrValidation for missing or negative fields, ErrProductNotFound if no product exists
// with the given ID, ErrDuplicateSKU if another product has the SKU and ErrPersistence if the
// document could not be saved.
func (s *Store) Replace(ctx context.Context, id string, fields ProductFields) (*Product, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return nil, ierrors.ErrProductNotFound
	}
	if s.skuTaken(fields.SKU, id) {
		return nil, fmt.Errorf("%w: %s", ierrors.ErrDuplicateSKU, fields.SKU)
	}

	next := s.doc.Clone()
	p := &next.Products[i]
	p.Name = fields.Name
	p.SKU = fields.SKU
	p.Category = fields.Category
	p.Quantity = *fields.Quantity
	p.Price = *fields.Price
	p.Description = fields.Description
	p.UpdatedAt = formatTime(s.now())

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	out := *p
	return &out, nil
}

// Delete removes a product and returns the removed record.
// Returns ErrProductNotFound if no product exists with the given ID and ErrPersistence
// if the document could not be saved.
func (s *Store) Delete(ctx context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return nil, ierrors.ErrProductNotFound
	}
	removed := s.doc.Products[i]
	next := s.doc.Clone()
	next.Products = append(next.Products[:i], next.Products[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return &removed, nil
}

// Health returns the startup repair flags with the current product count and next id.
func (s *Store) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	nextID := s.doc.NextID.Value
	if nextID < 1 {
		nextID = 1
	}
	return Health{
		StartupTime:      s.startupTime,
		ReseededProducts: s.reseeded,
		NextIDRepaired:   s.repaired,
		ProductCount:     len(s.doc.Products),
		NextID:           nextID,
	}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// commit persists next and makes it the current document. Must be called with mu held.
func (s *Store) commit(ctx context.Context, next *Document) error {
	if err := s.backend.Save(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist inventory", "error", err)
		return fmt.Errorf("%w: %v", ierrors.ErrPersistence, err)
	}
	s.doc = next
	return nil
}

func (s *Store) indexByID(id string) int {
	for i, p := range s.doc.Products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) skuTaken(sku, exceptID string) bool {
	for _, p := range s.doc.Products {
		if p.SKU == sku && p.ID != exceptID {
			return true
		}
	}
	return false
}

func validateFields(f ProductFields) error {
	var missing []string
	if f.Name == "" {
		missing = append(missing, "name")
	}
	if f.SKU == "" {
		missing = append(missing, "sku")
	}
	if f.Category == "" {
		missing = append(missing, "category")
	}
	if f.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if f.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ierrors.ErrValidation, strings.Join(missing, ", "))
	}
	if *f.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be a non-negative number", ierrors.ErrValidation)
	}
	if *f.Price < 0 {
		return fmt.Errorf("%w: price must be a non-negative number", ierrors.ErrValidation)
	}
	return nil
}
