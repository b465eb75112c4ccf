// Package rest provides HTTP handlers for inventory operations.
package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/abgdnv/inventory/internal/service"
	"github.com/abgdnv/inventory/internal/store"
	"github.com/abgdnv/inventory/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	msgRequiredFields  = "name, sku, category, quantity, and price are required"
	msgInvalidQuantity = "quantity must be a non-negative number"
	msgInvalidPrice    = "price must be a non-negative number"
	msgInvalidBody     = "Invalid request body"
	msgDuplicateSKU    = "A product with this SKU already exists"
	msgProductNotFound = "Product not found"
	msgProductDeleted  = "Product deleted successfully"
	msgInternalError   = "Internal server error"
)

// ProductInput is the body of create and replace requests.
type ProductInput struct {
	Name        string   `json:"name"        validate:"required"`
	SKU         string   `json:"sku"         validate:"required"`
	Category    string   `json:"category"    validate:"required"`
	Quantity    *int     `json:"quantity"    validate:"required,min=0"`
	Price       *float64 `json:"price"       validate:"required,min=0"`
	Description string   `json:"description"`
}

// QuantityInput is the body of quantity updates.
type QuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

func (in ProductInput) fields() store.ProductFields {
	return store.ProductFields{
		Name:        in.Name,
		SKU:         in.SKU,
		Category:    in.Category,
		Quantity:    in.Quantity,
		Price:       in.Price,
		Description: in.Description,
	}
}

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler for the given service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the inventory API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.FindAll)
			r.Post("/", h.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindByID)
				r.Put("/", h.Replace)
				r.Delete("/", h.DeleteByID)
				r.Patch("/quantity", h.UpdateQuantity)
			})
		})
		r.Get("/categories", h.Categories)
		r.Get("/stats", h.Stats)
		r.Get("/health", h.Health)
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll lists products filtered by the search and category query parameters.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	q := service.ProductQuery{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	mLogger.DebugContext(r.Context(), "Received request to find products", "search", q.Search, "category", q.Category)
	list, err := h.service.FindAll(r.Context(), q)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, msgInternalError)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "ID", id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	input, ok := h.decodeProduct(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "sku", input.SKU)

	created, err := h.service.Create(r.Context(), input.fields())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "sku", input.SKU)
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// Replace overwrites every mutable field of a product.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	input, ok := h.decodeProduct(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)

	updated, err := h.service.Replace(r.Context(), id, input.fields())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "ID", id)
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// UpdateQuantity sets the stock quantity of a product.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	var input QuantityInput
	if err := web.DecodeJSON(w, r, &input); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", validationDetails(err))
		web.RespondError(w, mLogger, http.StatusBadRequest, msgInvalidQuantity)
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update quantity", "ID", id, "quantity", *input.Quantity)

	updated, err := h.service.UpdateQuantity(r.Context(), id, *input.Quantity)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "ID", id)
		return
	}
	mLogger.InfoContext(r.Context(), "Quantity updated successfully", "ID", updated.ID, "quantity", updated.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err, "ID", id)
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]string{"message": msgProductDeleted})
}

// Categories lists the distinct product categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving categories", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, msgInternalError)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, categories)
}

// Stats returns aggregate inventory figures.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error computing stats", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, msgInternalError)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, stats)
}

// Health returns the store health snapshot.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.Health(r.Context()))
}

// HealthCheck is a simple liveness endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeProduct decodes and validates a ProductInput, writing the 400 response on failure.
func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (ProductInput, bool) {
	var input ProductInput
	if err := web.DecodeJSON(w, r, &input); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, msgInvalidBody)
		return input, false
	}
	if err := h.validate.Struct(input); err != nil {
		details := validationDetails(err)
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", details)
		web.RespondError(w, mLogger, http.StatusBadRequest, productValidationMessage(details))
		return input, false
	}
	return input, true
}

// validationDetails maps each failing field to the rule it broke.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return details
}

func productValidationMessage(details map[string]string) string {
	for _, tag := range details {
		if tag == "required" {
			return msgRequiredFields
		}
	}
	if _, ok := details["Quantity"]; ok {
		return msgInvalidQuantity
	}
	if _, ok := details["Price"]; ok {
		return msgInvalidPrice
	}
	return msgRequiredFields
}

// respondServiceError maps service errors to HTTP responses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, args ...any) {
	switch {
	case errors.Is(err, ierrors.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", args...)
		web.RespondError(w, mLogger, http.StatusNotFound, msgProductNotFound)
	case errors.Is(err, ierrors.ErrDuplicateSKU):
		mLogger.WarnContext(r.Context(), "Duplicate SKU", args...)
		web.RespondError(w, mLogger, http.StatusConflict, msgDuplicateSKU)
	case errors.Is(err, ierrors.ErrValidation):
		mLogger.WarnContext(r.Context(), "Validation failed", append(args, "error", err)...)
		web.RespondError(w, mLogger, http.StatusBadRequest, validationMessage(err))
	default:
		mLogger.ErrorContext(r.Context(), "Error processing request", append(args, "error", err)...)
		web.RespondError(w, mLogger, http.StatusInternalServerError, msgInternalError)
	}
}

func validationMessage(err error) string {
	for _, m := range []string{msgInvalidQuantity, msgInvalidPrice} {
		if strings.HasSuffix(err.Error(), m) {
			return m
		}
	}
	return msgRequiredFields
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
