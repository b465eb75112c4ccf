// Package service provides the inventory business operations on top of the record store.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/abgdnv/inventory/internal/store"
	"github.com/abgdnv/inventory/pkg/messaging"
	"github.com/abgdnv/inventory/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const meterName = "github.com/abgdnv/inventory/internal/service"

// CategoryAll disables category filtering.
const CategoryAll = "all"

// ProductService defines the inventory operations exposed to transports.
type ProductService interface {
	// FindAll returns the products matching q, sorted by name.
	// Returns an empty slice if nothing matches.
	FindAll(ctx context.Context, q ProductQuery) ([]store.Product, error)

	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*store.Product, error)

	// Create adds a new product.
	// Returns ErrValidation or ErrDuplicateSKU if the product cannot be created.
	Create(ctx context.Context, fields store.ProductFields) (*store.Product, error)

	// Replace overwrites all mutable fields of a product.
	// Returns ErrValidation, ErrProductNotFound or ErrDuplicateSKU.
	Replace(ctx context.Context, id string, fields store.ProductFields) (*store.Product, error)

	// UpdateQuantity sets the stock quantity of a product.
	// Returns ErrValidation or ErrProductNotFound.
	UpdateQuantity(ctx context.Context, id string, quantity int) (*store.Product, error)

	// DeleteByID removes a product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error

	// Categories returns the distinct categories in ascending order.
	Categories(ctx context.Context) ([]string, error)

	// Stats returns aggregate inventory figures.
	Stats(ctx context.Context) (*Stats, error)

	// Health returns the store health snapshot.
	Health(ctx context.Context) store.Health
}

// ProductQuery filters FindAll. Empty fields match everything.
type ProductQuery struct {
	Search   string
	Category string
}

// Stats holds aggregate inventory figures.
type Stats struct {
	TotalProducts   int     `json:"total_products"`
	TotalItems      int     `json:"total_items"`
	TotalValue      float64 `json:"total_value"`
	TotalCategories int     `json:"total_categories"`
}

// Service implements ProductService.
type Service struct {
	repository store.ProductStore
	publisher  messaging.Publisher
	logger     *slog.Logger
	now        func() time.Time
	mutations  metric.Int64Counter
}

// NewService creates a new Service. A nil publisher disables change events.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		repository: repo,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
	s.initMetrics()
	return s
}

func (s *Service) initMetrics() {
	meter := otel.Meter(meterName)
	var err error
	s.mutations, err = meter.Int64Counter("inventory.product.mutations",
		metric.WithDescription("Successful product mutations by operation"))
	if err != nil {
		s.logger.Warn("failed to create mutations counter", "error", err)
	}
	_, err = meter.Int64ObservableGauge("inventory.products",
		metric.WithDescription("Number of products in the store"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(s.repository.Health().ProductCount))
			return nil
		}))
	if err != nil {
		s.logger.Warn("failed to create products gauge", "error", err)
	}
}

func (s *Service) FindAll(ctx context.Context, q ProductQuery) ([]store.Product, error) {
	term := strings.ToLower(q.Search)
	category := q.Category
	if category == CategoryAll {
		category = ""
	}
	products := s.repository.Filter(ctx, func(p store.Product) bool {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.SKU), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
		return category == "" || p.Category == category
	})
	sortByName(products)
	return products, nil
}

// sortByName orders products by name using English collation. Collators are not
// safe for concurrent use, so one is built per call.
func sortByName(products []store.Product) {
	c := collate.New(language.English)
	sort.SliceStable(products, func(i, j int) bool {
		return c.CompareString(products[i].Name, products[j].Name) < 0
	})
}

func (s *Service) FindByID(ctx context.Context, id string) (*store.Product, error) {
	p, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, fields store.ProductFields) (*store.Product, error) {
	p, err := s.repository.Insert(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.recordMutation(ctx, "create")
	s.publish(ctx, events.ProductCreated{Product: snapshot(p), OccurredAt: s.now().UTC()})
	return p, nil
}

func (s *Service) Replace(ctx context.Context, id string, fields store.ProductFields) (*store.Product, error) {
	p, err := s.repository.Replace(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	s.recordMutation(ctx, "replace")
	s.publish(ctx, events.ProductUpdated{Product: snapshot(p), OccurredAt: s.now().UTC()})
	return p, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, id string, quantity int) (*store.Product, error) {
	before, p, err := s.repository.UpdateQuantity(ctx, id, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity for product with ID %s: %w", id, err)
	}
	s.recordMutation(ctx, "update_quantity")
	s.publish(ctx, events.ProductQuantityChanged{
		ProductID:  p.ID,
		SKU:        p.SKU,
		Previous:   before.Quantity,
		Current:    p.Quantity,
		OccurredAt: s.now().UTC(),
	})
	return p, nil
}

func (s *Service) DeleteByID(ctx context.Context, id string) error {
	p, err := s.repository.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	s.recordMutation(ctx, "delete")
	s.publish(ctx, events.ProductDeleted{ProductID: p.ID, SKU: p.SKU, OccurredAt: s.now().UTC()})
	return nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, p := range s.repository.List(ctx) {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	products := s.repository.List(ctx)
	stats := &Stats{TotalProducts: len(products)}
	categories := make(map[string]struct{})
	for _, p := range products {
		stats.TotalItems += p.Quantity
		stats.TotalValue += float64(p.Quantity) * p.Price
		categories[p.Category] = struct{}{}
	}
	stats.TotalCategories = len(categories)
	return stats, nil
}

func (s *Service) Health(_ context.Context) store.Health {
	return s.repository.Health()
}

func (s *Service) recordMutation(ctx context.Context, op string) {
	if s.mutations == nil {
		return
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// publish sends event and logs failures.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func snapshot(p *store.Product) events.ProductSnapshot {
	return events.ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Category:    p.Category,
		Quantity:    p.Quantity,
		Price:       p.Price,
		Description: p.Description,
	}
}
