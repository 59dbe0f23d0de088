package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock = errors.New("requested quantity exceeds available stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidDiscount   = errors.New("invalid discount type")
	ErrItemNotSellable   = errors.New("item is not active")
)

// DiscountType is the kind of sale-level discount attached to a cart
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// IsValid checks if the discount type is one of the known values
func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountNone, DiscountPercentage, DiscountFixed:
		return true
	}
	return false
}

// DiscountSpec is the discount type/value pair attached to a cart.
// It is stored verbatim; range validation and clamping happen at
// total-computation time, not at set time.
type DiscountSpec struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// NoDiscount returns the zero discount spec
func NoDiscount() DiscountSpec {
	return DiscountSpec{Type: DiscountNone, Value: decimal.Zero}
}

// CartLine is one (item, quantity) pair in the cart. UnitPrice and the
// derived Subtotal are captured from the catalog snapshot at the time the
// line was added or last updated.
type CartLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ItemName  string          `json:"item_name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	AddedAt   time.Time       `json:"added_at"`
}

// Cart is the in-memory, pre-checkout representation of an in-progress
// sale: an ordered sequence of lines (one per distinct item, insertion
// order), a discount spec and transient buyer/note inputs. It is never
// persisted until checkout.
type Cart struct {
	Lines      []CartLine   `json:"lines"`
	Discount   DiscountSpec `json:"discount"`
	BuyerName  string       `json:"buyer_name,omitempty"`
	BuyerPhone string       `json:"buyer_phone,omitempty"`
	Note       string       `json:"note,omitempty"`
}

// NewCart creates an empty cart
func NewCart() *Cart {
	return &Cart{
		Lines:    []CartLine{},
		Discount: NoDiscount(),
	}
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// lineIndex returns the index of the line for itemID, or -1
func (c *Cart) lineIndex(itemID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// Line returns the line for itemID if present
func (c *Cart) Line(itemID uuid.UUID) (*CartLine, bool) {
	if i := c.lineIndex(itemID); i >= 0 {
		return &c.Lines[i], true
	}
	return nil, false
}

// AddItem adds qty of item to the cart. If the item already has a line the
// quantity is increased rather than a duplicate line appended. The request
// is rejected and the cart left unchanged when the resulting quantity would
// exceed the item's last-observed stock; that check is advisory only, the
// authoritative check happens at the conditional decrement during checkout.
func (c *Cart) AddItem(item *CatalogItem, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if item.Status != ItemStatusActive {
		return fmt.Errorf("%w: %s", ErrItemNotSellable, item.SKU)
	}

	existing := c.lineIndex(item.ID)
	resulting := qty
	if existing >= 0 {
		resulting += c.Lines[existing].Quantity
	}
	if resulting > item.Stock {
		return fmt.Errorf("%w: %s has %d on hand, requested %d", ErrInsufficientStock, item.SKU, item.Stock, resulting)
	}

	if existing >= 0 {
		line := &c.Lines[existing]
		line.Quantity = resulting
		line.UnitPrice = item.Price
		line.Subtotal = lineSubtotal(resulting, item.Price)
		return nil
	}

	c.Lines = append(c.Lines, CartLine{
		ItemID:    item.ID,
		ItemName:  item.Name,
		SKU:       item.SKU,
		UnitPrice: item.Price,
		Quantity:  qty,
		Subtotal:  lineSubtotal(qty, item.Price),
		AddedAt:   time.Now(),
	})
	return nil
}

// RemoveItem deletes the line for itemID; no-op when absent
func (c *Cart) RemoveItem(itemID uuid.UUID) {
	if i := c.lineIndex(itemID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// SetQuantity sets the line quantity for the given item. A quantity of zero
// or less removes the line. The same advisory stock check as AddItem
// applies; on rejection the cart is left unchanged.
func (c *Cart) SetQuantity(item *CatalogItem, qty int) error {
	if qty <= 0 {
		c.RemoveItem(item.ID)
		return nil
	}
	if qty > item.Stock {
		return fmt.Errorf("%w: %s has %d on hand, requested %d", ErrInsufficientStock, item.SKU, item.Stock, qty)
	}

	i := c.lineIndex(item.ID)
	if i < 0 {
		return c.AddItem(item, qty)
	}

	line := &c.Lines[i]
	line.Quantity = qty
	line.UnitPrice = item.Price
	line.Subtotal = lineSubtotal(qty, item.Price)
	return nil
}

// SetDiscount stores the discount spec verbatim. Only the type is checked
// here; value range validation and clamping happen in the pricing engine.
func (c *Cart) SetDiscount(discountType DiscountType, value decimal.Decimal) error {
	if !discountType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDiscount, discountType)
	}
	if value.IsNegative() {
		return fmt.Errorf("%w: value cannot be negative", ErrInvalidDiscount)
	}
	c.Discount = DiscountSpec{Type: discountType, Value: value}
	return nil
}

// SetBuyer sets the optional buyer display fields
func (c *Cart) SetBuyer(name, phone string) {
	c.BuyerName = name
	c.BuyerPhone = phone
}

// SetNote sets the free-text note
func (c *Cart) SetNote(note string) {
	c.Note = note
}

// Clear empties all lines, resets the discount and clears buyer fields and note
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.Discount = NoDiscount()
	c.BuyerName = ""
	c.BuyerPhone = ""
	c.Note = ""
}

// lineSubtotal is quantity x unit price rounded to 2 decimal places
func lineSubtotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}
