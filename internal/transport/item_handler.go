package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/middleware"
	"shopdesk/internal/repository"
	"shopdesk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ItemRequest represents the create/update item payload
type ItemRequest struct {
	Name         string `json:"name" validate:"required"`
	Category     string `json:"category" validate:"required,oneof=device part accessory service"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SKU          string `json:"sku" validate:"required"`
	Barcode      string `json:"barcode"`
	Price        string `json:"price" validate:"required"`
	Cost         string `json:"cost"`
	Stock        int    `json:"stock" validate:"gte=0"`
	ReorderLevel int    `json:"reorder_level" validate:"gte=0"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive discontinued"`
	ImageURL     string `json:"image_url"`
	Description  string `json:"description"`
}

// ItemResponse represents item data returned to clients
type ItemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	SKU          string `json:"sku"`
	Barcode      string `json:"barcode,omitempty"`
	Price        string `json:"price"`
	Cost         string `json:"cost,omitempty"`
	Stock        int    `json:"stock"`
	ReorderLevel int    `json:"reorder_level"`
	LowStock     bool   `json:"low_stock"`
	Status       string `json:"status"`
	ImageURL     string `json:"image_url,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ItemListResponse represents a paginated item listing
type ItemListResponse struct {
	Items    []ItemResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// ItemHandler handles HTTP requests for catalog items
type ItemHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(catalogService service.CatalogService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all item routes. Reads require authentication;
// catalog writes additionally require the admin role.
func (h *ItemHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/items", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/catalog", h.Catalog)
		r.Post("/catalog/refresh", h.RefreshCatalog)
		r.Get("/{id}", h.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles listing items with server-side filtering and pagination
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, pageSize := parsePagination(r)
	sortBy := r.URL.Query().Get("sort_by")
	if sortBy == "" {
		sortBy = "name"
	}
	sortOrder := repository.SortOrderAsc
	if r.URL.Query().Get("sort_order") == "desc" {
		sortOrder = repository.SortOrderDesc
	}

	items, total, err := h.catalogService.ListItems(r.Context(), filter, page, pageSize, sortBy, sortOrder)
	if err != nil {
		h.logger.Error("Failed to list items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toItemListResponse(items, total, page, pageSize))
}

// Search handles free-text search over name, SKU and barcode
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	page, pageSize := parsePagination(r)
	items, total, err := h.catalogService.SearchItems(r.Context(), query, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to search items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to search items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toItemListResponse(items, total, page, pageSize))
}

// Catalog returns the in-memory catalog snapshot without touching the database
func (h *ItemHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	items := h.catalogService.Snapshot()
	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	middleware.RespondWithJSON(w, http.StatusOK, responses)
}

// RefreshCatalog forces a snapshot rebuild from the database
func (h *ItemHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.Refresh(r.Context(), repository.ItemFilter{}); err != nil {
		h.logger.Error("Catalog refresh failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh catalog")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]int{"items": len(h.catalogService.Snapshot())})
}

// GetByID returns one item from the catalog snapshot
func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	item, ok := h.catalogService.Item(id)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "item not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toItemResponse(item))
}

// Create handles item creation
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := req.toDomain(uuid.New())
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalogService.CreateItem(r.Context(), item); err != nil {
		h.logger.Error("Failed to create item", zap.Error(err))

		if errors.Is(err, repository.ErrDuplicateSKU) {
			middleware.RespondWithError(w, http.StatusConflict, "item with this SKU already exists")
			return
		}
		if errors.Is(err, service.ErrInvalidCategory) {
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown item category")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.logger.Info("Item created", zap.String("item_id", item.ID.String()), zap.String("sku", item.SKU))
	middleware.RespondWithJSON(w, http.StatusCreated, toItemResponse(item))
}

// Update handles item updates. Stock is not updatable here; it only changes
// through checkout or a stock adjustment.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req ItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := req.toDomain(id)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalogService.UpdateItem(r.Context(), item); err != nil {
		h.logger.Error("Failed to update item", zap.Error(err))

		if errors.Is(err, repository.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not found")
			return
		}
		if errors.Is(err, repository.ErrDuplicateSKU) {
			middleware.RespondWithError(w, http.StatusConflict, "item with this SKU already exists")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, ok := h.catalogService.Item(id)
	if !ok {
		updated = item
	}
	middleware.RespondWithJSON(w, http.StatusOK, toItemResponse(updated))
}

// Delete handles item deletion
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	if err := h.catalogService.DeleteItem(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete item", zap.Error(err))

		if errors.Is(err, repository.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not found")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.logger.Info("Item deleted", zap.String("item_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

func (req *ItemRequest) toDomain(id uuid.UUID) (*domain.CatalogItem, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, errors.New("price must be a non-negative decimal")
	}

	cost := decimal.Zero
	if req.Cost != "" {
		cost, err = decimal.NewFromString(req.Cost)
		if err != nil || cost.IsNegative() {
			return nil, errors.New("cost must be a non-negative decimal")
		}
	}

	status := domain.ItemStatus(req.Status)
	if req.Status == "" {
		status = domain.ItemStatusActive
	}

	now := time.Now()
	return &domain.CatalogItem{
		ID:           id,
		Name:         req.Name,
		Category:     domain.Category(req.Category),
		Brand:        req.Brand,
		Model:        req.Model,
		SKU:          req.SKU,
		Barcode:      req.Barcode,
		Price:        price,
		Cost:         cost,
		Stock:        req.Stock,
		ReorderLevel: req.ReorderLevel,
		Status:       status,
		ImageURL:     req.ImageURL,
		Description:  req.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func toItemResponse(item *domain.CatalogItem) ItemResponse {
	resp := ItemResponse{
		ID:           item.ID.String(),
		Name:         item.Name,
		Category:     string(item.Category),
		Brand:        item.Brand,
		Model:        item.Model,
		SKU:          item.SKU,
		Barcode:      item.Barcode,
		Price:        item.Price.StringFixed(2),
		Stock:        item.Stock,
		ReorderLevel: item.ReorderLevel,
		LowStock:     item.BelowReorderLevel(),
		Status:       string(item.Status),
		ImageURL:     item.ImageURL,
		Description:  item.Description,
	}
	if !item.Cost.IsZero() {
		resp.Cost = item.Cost.StringFixed(2)
	}
	return resp
}

func toItemListResponse(items []*domain.CatalogItem, total, page, pageSize int) ItemListResponse {
	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	return ItemListResponse{
		Items:    responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

func parseItemFilter(r *http.Request) (repository.ItemFilter, error) {
	q := r.URL.Query()
	filter := repository.ItemFilter{}

	if raw := q.Get("category"); raw != "" {
		category := domain.Category(raw)
		if !category.IsValid() {
			return filter, errors.New("unknown category")
		}
		filter.Category = &category
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.ItemStatus(raw)
		if !status.IsValid() {
			return filter, errors.New("unknown status")
		}
		filter.Status = &status
	}
	if raw := q.Get("brand"); raw != "" {
		brand := raw
		filter.Brand = &brand
	}
	if raw := q.Get("min_price"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errors.New("min_price must be a decimal")
		}
		filter.MinPrice = &min
	}
	if raw := q.Get("max_price"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errors.New("max_price must be a decimal")
		}
		filter.MaxPrice = &max
	}

	return filter, nil
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20

	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			pageSize = parsed
		}
	}
	return page, pageSize
}
