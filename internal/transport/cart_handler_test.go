package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/middleware"
	"shopdesk/internal/repository"
	"shopdesk/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// stubCatalog serves a fixed set of items without a backing store
type stubCatalog struct {
	items map[uuid.UUID]*domain.CatalogItem
}

func newStubCatalog(items ...*domain.CatalogItem) *stubCatalog {
	c := &stubCatalog{items: make(map[uuid.UUID]*domain.CatalogItem)}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *stubCatalog) Refresh(ctx context.Context, filter repository.ItemFilter) error { return nil }

func (c *stubCatalog) Snapshot() []*domain.CatalogItem {
	out := make([]*domain.CatalogItem, 0, len(c.items))
	for _, item := range c.items {
		dup := *item
		out = append(out, &dup)
	}
	return out
}

func (c *stubCatalog) Item(id uuid.UUID) (*domain.CatalogItem, bool) {
	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	dup := *item
	return &dup, true
}

func (c *stubCatalog) CreateItem(ctx context.Context, item *domain.CatalogItem) error {
	c.items[item.ID] = item
	return nil
}

func (c *stubCatalog) UpdateItem(ctx context.Context, item *domain.CatalogItem) error {
	c.items[item.ID] = item
	return nil
}

func (c *stubCatalog) DeleteItem(ctx context.Context, id uuid.UUID) error {
	delete(c.items, id)
	return nil
}

func (c *stubCatalog) ListItems(ctx context.Context, filter repository.ItemFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.CatalogItem, int, error) {
	items := c.Snapshot()
	return items, len(items), nil
}

func (c *stubCatalog) SearchItems(ctx context.Context, query string, page, pageSize int) ([]*domain.CatalogItem, int, error) {
	items := c.Snapshot()
	return items, len(items), nil
}

var _ service.CatalogService = (*stubCatalog)(nil)

func sellableItem(price string, stock int) *domain.CatalogItem {
	return &domain.CatalogItem{
		ID:        uuid.New(),
		Name:      "USB-C cable",
		Category:  domain.CategoryAccessory,
		SKU:       "SKU-" + uuid.New().String()[:8],
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Status:    domain.ItemStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// authedRequest builds a request carrying the context an authenticated
// operator's request would have after the auth middleware ran.
func authedRequest(method, target string, body []byte, operatorID uuid.UUID) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := context.WithValue(req.Context(), middleware.OperatorIDKey, operatorID.String())
	ctx = context.WithValue(ctx, middleware.OperatorNameKey, "Dana")
	ctx = context.WithValue(ctx, middleware.OperatorRoleKey, "cashier")
	return req.WithContext(ctx)
}

func TestCartAddItemReturnsUpdatedTotals(t *testing.T) {
	item := sellableItem("25.00", 10)
	carts := service.NewCartService(newStubCatalog(item))
	handler := NewCartHandler(carts, zap.NewNop())
	operatorID := uuid.New()

	body, _ := json.Marshal(AddLineRequest{ItemID: item.ID.String(), Quantity: 3})
	req := authedRequest(http.MethodPost, "/api/cart/items", body, operatorID)
	w := httptest.NewRecorder()

	handler.AddItem(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp CartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Lines) != 1 || resp.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected lines: %+v", resp.Lines)
	}
	if resp.Subtotal != "75.00" || resp.Total != "75.00" {
		t.Errorf("unexpected totals: subtotal %s total %s", resp.Subtotal, resp.Total)
	}
}

func TestCartAddUnknownItemReturns404(t *testing.T) {
	carts := service.NewCartService(newStubCatalog())
	handler := NewCartHandler(carts, zap.NewNop())

	body, _ := json.Marshal(AddLineRequest{ItemID: uuid.New().String(), Quantity: 1})
	req := authedRequest(http.MethodPost, "/api/cart/items", body, uuid.New())
	w := httptest.NewRecorder()

	handler.AddItem(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCartAddBeyondStockReturns409(t *testing.T) {
	item := sellableItem("25.00", 2)
	carts := service.NewCartService(newStubCatalog(item))
	handler := NewCartHandler(carts, zap.NewNop())

	body, _ := json.Marshal(AddLineRequest{ItemID: item.ID.String(), Quantity: 5})
	req := authedRequest(http.MethodPost, "/api/cart/items", body, uuid.New())
	w := httptest.NewRecorder()

	handler.AddItem(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCartDiscountAppliedToTotals(t *testing.T) {
	item := sellableItem("100.00", 10)
	carts := service.NewCartService(newStubCatalog(item))
	handler := NewCartHandler(carts, zap.NewNop())
	operatorID := uuid.New()

	if err := carts.AddItem(operatorID, item.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	body, _ := json.Marshal(DiscountRequest{Type: "percentage", Value: "10"})
	req := authedRequest(http.MethodPut, "/api/cart/discount", body, operatorID)
	w := httptest.NewRecorder()

	handler.SetDiscount(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp CartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.DiscountAmount != "20.00" || resp.Total != "180.00" {
		t.Errorf("unexpected totals: discount %s total %s", resp.DiscountAmount, resp.Total)
	}
}

func TestCartNegativeDiscountRejected(t *testing.T) {
	item := sellableItem("100.00", 10)
	carts := service.NewCartService(newStubCatalog(item))
	handler := NewCartHandler(carts, zap.NewNop())
	operatorID := uuid.New()

	body, _ := json.Marshal(DiscountRequest{Type: "fixed", Value: "-5"})
	req := authedRequest(http.MethodPut, "/api/cart/discount", body, operatorID)
	w := httptest.NewRecorder()

	handler.SetDiscount(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCartClearResetsEverything(t *testing.T) {
	item := sellableItem("100.00", 10)
	carts := service.NewCartService(newStubCatalog(item))
	handler := NewCartHandler(carts, zap.NewNop())
	operatorID := uuid.New()

	if err := carts.AddItem(operatorID, item.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	carts.SetNote(operatorID, "gift wrap")

	req := authedRequest(http.MethodDelete, "/api/cart", nil, operatorID)
	w := httptest.NewRecorder()

	handler.Clear(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp CartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Lines) != 0 || resp.Note != "" || resp.Total != "0.00" {
		t.Errorf("cart not cleared: %+v", resp)
	}
}

func TestCartRequestWithoutIdentityRejected(t *testing.T) {
	carts := service.NewCartService(newStubCatalog())
	handler := NewCartHandler(carts, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
