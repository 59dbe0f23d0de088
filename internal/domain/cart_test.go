package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func testItem(name string, price string, stock int) *CatalogItem {
	return &CatalogItem{
		ID:        uuid.New(),
		Name:      name,
		Category:  CategoryAccessory,
		SKU:       "SKU-" + uuid.New().String()[:8],
		Price:     decimal.RequireFromString(price),
		Cost:      decimal.Zero,
		Stock:     stock,
		Status:    ItemStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// Property 1: after any sequence of valid mutations the subtotal equals the
// sum of quantity x unit price over all lines.
func TestProperty_SubtotalMatchesLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("subtotal equals sum of line quantity x price", prop.ForAll(
		func(prices []int, quantities []int) bool {
			cart := NewCart()

			n := len(prices)
			if len(quantities) < n {
				n = len(quantities)
			}

			items := make([]*CatalogItem, 0, n)
			for i := 0; i < n; i++ {
				price := decimal.NewFromInt(int64(prices[i])).Div(decimal.NewFromInt(100)).Round(2)
				item := testItem("item", price.String(), quantities[i])
				items = append(items, item)
				if err := cart.AddItem(item, quantities[i]); err != nil {
					t.Logf("FAIL: valid add rejected: %v", err)
					return false
				}
			}

			expected := decimal.Zero
			for i := 0; i < n; i++ {
				expected = expected.Add(items[i].Price.Mul(decimal.NewFromInt(int64(quantities[i]))).Round(2))
			}

			totals := ComputeTotals(cart)
			if !totals.Subtotal.Equal(expected.Round(2)) {
				t.Logf("FAIL: subtotal %s, expected %s", totals.Subtotal, expected)
				return false
			}
			return true
		},
		gen.SliceOfN(5, gen.IntRange(1, 100000)),
		gen.SliceOfN(5, gen.IntRange(1, 50)),
	))

	properties.TestingRun(t)
}

// Property 9: adding an already-present item merges into one line
func TestAddItemMergesExistingLine(t *testing.T) {
	cart := NewCart()
	item := testItem("HDMI cable", "12.50", 10)

	if err := cart.AddItem(item, 1); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := cart.AddItem(item, 1); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", cart.Lines[0].Quantity)
	}
	if !cart.Lines[0].Subtotal.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("expected subtotal 25.00, got %s", cart.Lines[0].Subtotal)
	}
}

// Property 8: an add exceeding last-known stock is rejected and the cart is unchanged
func TestAddItemRejectsExceedingStock(t *testing.T) {
	cart := NewCart()
	item := testItem("screen protector", "8.00", 3)

	err := cart.AddItem(item, 5)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Errorf("expected empty cart after rejected add, got %d lines", len(cart.Lines))
	}
}

func TestAddItemRejectsWhenMergedQuantityExceedsStock(t *testing.T) {
	cart := NewCart()
	item := testItem("battery", "20.00", 3)

	if err := cart.AddItem(item, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.AddItem(item, 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if cart.Lines[0].Quantity != 2 {
		t.Errorf("cart changed by rejected add: quantity %d", cart.Lines[0].Quantity)
	}
}

func TestAddItemRejectsInactiveItem(t *testing.T) {
	cart := NewCart()
	item := testItem("legacy charger", "5.00", 10)
	item.Status = ItemStatusDiscontinued

	if err := cart.AddItem(item, 1); !errors.Is(err, ErrItemNotSellable) {
		t.Fatalf("expected ErrItemNotSellable, got %v", err)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	cart := NewCart()
	item := testItem("case", "15.00", 10)

	if err := cart.AddItem(item, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.SetQuantity(item, 0); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Errorf("expected line removed, got %d lines", len(cart.Lines))
	}
}

func TestSetQuantityUpdatesSubtotal(t *testing.T) {
	cart := NewCart()
	item := testItem("sim tool", "1.25", 20)

	if err := cart.AddItem(item, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.SetQuantity(item, 4); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if !cart.Lines[0].Subtotal.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("expected subtotal 5.00, got %s", cart.Lines[0].Subtotal)
	}
}

func TestSetQuantityRejectsExceedingStock(t *testing.T) {
	cart := NewCart()
	item := testItem("tempered glass", "9.99", 2)

	if err := cart.AddItem(item, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.SetQuantity(item, 3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if cart.Lines[0].Quantity != 1 {
		t.Errorf("cart changed by rejected update: quantity %d", cart.Lines[0].Quantity)
	}
}

func TestRemoveItemIsNoopWhenAbsent(t *testing.T) {
	cart := NewCart()
	item := testItem("cable", "3.00", 5)

	if err := cart.AddItem(item, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cart.RemoveItem(uuid.New())
	if len(cart.Lines) != 1 {
		t.Errorf("expected 1 line, got %d", len(cart.Lines))
	}
}

func TestClearResetsEverything(t *testing.T) {
	cart := NewCart()
	item := testItem("adapter", "22.00", 5)

	if err := cart.AddItem(item, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.SetDiscount(DiscountPercentage, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("set discount failed: %v", err)
	}
	cart.SetBuyer("Alex", "555-0101")
	cart.SetNote("walk-in")

	cart.Clear()

	if !cart.IsEmpty() {
		t.Error("expected empty cart after clear")
	}
	if cart.Discount.Type != DiscountNone {
		t.Errorf("expected discount reset, got %s", cart.Discount.Type)
	}
	if cart.BuyerName != "" || cart.BuyerPhone != "" || cart.Note != "" {
		t.Error("expected buyer fields and note cleared")
	}
}

func TestSetDiscountStoresVerbatim(t *testing.T) {
	cart := NewCart()

	// An over-large fixed value is stored as-is; clamping happens at
	// total-computation time.
	if err := cart.SetDiscount(DiscountFixed, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("set discount failed: %v", err)
	}
	if !cart.Discount.Value.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected stored value 1000, got %s", cart.Discount.Value)
	}
}

func TestSetDiscountRejectsUnknownType(t *testing.T) {
	cart := NewCart()
	if err := cart.SetDiscount(DiscountType("bogo"), decimal.NewFromInt(1)); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestLinesPreserveInsertionOrder(t *testing.T) {
	cart := NewCart()
	first := testItem("first", "1.00", 10)
	second := testItem("second", "2.00", 10)
	third := testItem("third", "3.00", 10)

	for _, item := range []*CatalogItem{first, second, third} {
		if err := cart.AddItem(item, 1); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	// Re-adding the first item must not move its line.
	if err := cart.AddItem(first, 1); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}

	if cart.Lines[0].ItemID != first.ID || cart.Lines[1].ItemID != second.ID || cart.Lines[2].ItemID != third.ID {
		t.Error("lines not in insertion order")
	}
}
