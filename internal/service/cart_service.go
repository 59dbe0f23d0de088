package service

import (
	"errors"
	"sync"

	"shopdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrItemNotInCatalog = errors.New("item not found in catalog")

// CartService manages one in-progress cart per operator. Carts are
// process-local and never persisted before checkout. Stock validation here
// uses the catalog snapshot and is advisory only.
type CartService interface {
	// Cart returns a copy of the operator's cart together with its totals.
	Cart(operatorID uuid.UUID) (*domain.Cart, domain.Totals)
	AddItem(operatorID, itemID uuid.UUID, qty int) error
	RemoveItem(operatorID, itemID uuid.UUID)
	SetQuantity(operatorID, itemID uuid.UUID, qty int) error
	SetDiscount(operatorID uuid.UUID, discountType domain.DiscountType, value decimal.Decimal) error
	SetBuyer(operatorID uuid.UUID, name, phone string)
	SetNote(operatorID uuid.UUID, note string)
	Clear(operatorID uuid.UUID)
}

type cartService struct {
	catalog CatalogService

	mu    sync.Mutex
	carts map[uuid.UUID]*domain.Cart
}

// NewCartService creates a new instance of CartService
func NewCartService(catalog CatalogService) CartService {
	return &cartService{
		catalog: catalog,
		carts:   make(map[uuid.UUID]*domain.Cart),
	}
}

// cart returns the live cart for an operator, creating it when absent.
// Callers must hold s.mu.
func (s *cartService) cart(operatorID uuid.UUID) *domain.Cart {
	c, ok := s.carts[operatorID]
	if !ok {
		c = domain.NewCart()
		s.carts[operatorID] = c
	}
	return c
}

// Cart returns a copy of the operator's cart and its computed totals
func (s *cartService) Cart(operatorID uuid.UUID) (*domain.Cart, domain.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.cart(operatorID)
	snapshot := *live
	snapshot.Lines = append([]domain.CartLine{}, live.Lines...)
	return &snapshot, domain.ComputeTotals(&snapshot)
}

// AddItem adds qty of the catalog item to the operator's cart
func (s *cartService) AddItem(operatorID, itemID uuid.UUID, qty int) error {
	item, ok := s.catalog.Item(itemID)
	if !ok {
		return ErrItemNotInCatalog
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart(operatorID).AddItem(item, qty)
}

// RemoveItem removes the line for itemID from the operator's cart
func (s *cartService) RemoveItem(operatorID, itemID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(operatorID).RemoveItem(itemID)
}

// SetQuantity sets the quantity of an existing or new line
func (s *cartService) SetQuantity(operatorID, itemID uuid.UUID, qty int) error {
	item, ok := s.catalog.Item(itemID)
	if !ok {
		return ErrItemNotInCatalog
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart(operatorID).SetQuantity(item, qty)
}

// SetDiscount stores the discount spec on the operator's cart
func (s *cartService) SetDiscount(operatorID uuid.UUID, discountType domain.DiscountType, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart(operatorID).SetDiscount(discountType, value)
}

// SetBuyer sets the buyer display fields
func (s *cartService) SetBuyer(operatorID uuid.UUID, name, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(operatorID).SetBuyer(name, phone)
}

// SetNote sets the free-text note
func (s *cartService) SetNote(operatorID uuid.UUID, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(operatorID).SetNote(note)
}

// Clear empties the operator's cart
func (s *cartService) Clear(operatorID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(operatorID).Clear()
}
