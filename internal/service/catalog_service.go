package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const catalogPageSize = 500

var ErrInvalidCategory = errors.New("unknown item category")

// CatalogService owns the process-local read snapshot of sellable items and
// the catalog management operations. The snapshot is replaced wholesale on
// every refresh; concurrent refreshes are last-write-wins with no generation
// check. Cached stock figures are advisory; the database column is
// authoritative and only changes through the checkout transaction or an
// explicit restock.
type CatalogService interface {
	Refresh(ctx context.Context, filter repository.ItemFilter) error
	Snapshot() []*domain.CatalogItem
	Item(id uuid.UUID) (*domain.CatalogItem, bool)

	CreateItem(ctx context.Context, item *domain.CatalogItem) error
	UpdateItem(ctx context.Context, item *domain.CatalogItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, filter repository.ItemFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.CatalogItem, int, error)
	SearchItems(ctx context.Context, query string, page, pageSize int) ([]*domain.CatalogItem, int, error)
}

type catalogService struct {
	itemRepo repository.ItemRepository
	logger   *zap.Logger

	mu    sync.RWMutex
	items map[uuid.UUID]*domain.CatalogItem
	order []uuid.UUID
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(itemRepo repository.ItemRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		itemRepo: itemRepo,
		logger:   logger,
		items:    make(map[uuid.UUID]*domain.CatalogItem),
	}
}

// Refresh bulk-reads items (optionally server-side filtered) and replaces
// the snapshot wholesale. There is no incremental sync.
func (s *catalogService) Refresh(ctx context.Context, filter repository.ItemFilter) error {
	start := time.Now()

	all := []*domain.CatalogItem{}
	page := 1
	for {
		items, total, err := s.itemRepo.List(ctx, filter, page, catalogPageSize, "name", repository.SortOrderAsc)
		if err != nil {
			return fmt.Errorf("failed to refresh catalog: %w", err)
		}
		all = append(all, items...)
		if len(all) >= total || len(items) == 0 {
			break
		}
		page++
	}

	next := make(map[uuid.UUID]*domain.CatalogItem, len(all))
	order := make([]uuid.UUID, 0, len(all))
	for _, item := range all {
		next[item.ID] = item
		order = append(order, item.ID)
	}

	s.mu.Lock()
	s.items = next
	s.order = order
	s.mu.Unlock()

	s.logger.Debug("Catalog refreshed",
		zap.Int("items", len(all)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Snapshot returns a copy of the cached items in list order
func (s *catalogService) Snapshot() []*domain.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.CatalogItem, 0, len(s.order))
	for _, id := range s.order {
		dup := *s.items[id]
		out = append(out, &dup)
	}
	return out
}

// Item returns a copy of one cached item
func (s *catalogService) Item(id uuid.UUID) (*domain.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	dup := *item
	return &dup, true
}

// CreateItem persists a new item and refreshes the snapshot
func (s *catalogService) CreateItem(ctx context.Context, item *domain.CatalogItem) error {
	if !item.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, item.Category)
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// UpdateItem persists item changes and refreshes the snapshot
func (s *catalogService) UpdateItem(ctx context.Context, item *domain.CatalogItem) error {
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// DeleteItem removes an item and refreshes the snapshot
func (s *catalogService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshAfterWrite(ctx)
	return nil
}

// ListItems reads items from the backing store with server-side filtering
func (s *catalogService) ListItems(ctx context.Context, filter repository.ItemFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.CatalogItem, int, error) {
	return s.itemRepo.List(ctx, filter, page, pageSize, sortBy, sortOrder)
}

// SearchItems searches items by name, SKU or barcode
func (s *catalogService) SearchItems(ctx context.Context, query string, page, pageSize int) ([]*domain.CatalogItem, int, error) {
	return s.itemRepo.Search(ctx, query, page, pageSize)
}

// refreshAfterWrite keeps the snapshot in step with catalog writes; a failed
// refresh only leaves the cache stale until the next one.
func (s *catalogService) refreshAfterWrite(ctx context.Context) {
	if err := s.Refresh(ctx, repository.ItemFilter{}); err != nil {
		s.logger.Warn("Catalog refresh after write failed", zap.Error(err))
	}
}
