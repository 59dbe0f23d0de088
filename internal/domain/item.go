package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the closed set of item categories
type Category string

const (
	CategoryDevice    Category = "device"
	CategoryPart      Category = "part"
	CategoryAccessory Category = "accessory"
	CategoryService   Category = "service"
)

// IsValid checks if the category is one of the known values
func (c Category) IsValid() bool {
	switch c {
	case CategoryDevice, CategoryPart, CategoryAccessory, CategoryService:
		return true
	}
	return false
}

// ItemStatus is the lifecycle status of a catalog item
type ItemStatus string

const (
	ItemStatusActive       ItemStatus = "active"
	ItemStatusInactive     ItemStatus = "inactive"
	ItemStatusDiscontinued ItemStatus = "discontinued"
)

// IsValid checks if the status is one of the known values
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusActive, ItemStatusInactive, ItemStatusDiscontinued:
		return true
	}
	return false
}

// CatalogItem represents a sellable item in the catalog.
// The client-side cache holds a read-only snapshot of these rows; the
// Stock field is authoritative only in the database.
type CatalogItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Category     Category        `json:"category" db:"category"`
	Brand        string          `json:"brand" db:"brand"`
	Model        string          `json:"model" db:"model"`
	SKU          string          `json:"sku" db:"sku"`
	Barcode      string          `json:"barcode,omitempty" db:"barcode"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Cost         decimal.Decimal `json:"cost" db:"cost"`
	Stock        int             `json:"stock" db:"stock"`
	ReorderLevel int             `json:"reorder_level" db:"reorder_level"`
	Status       ItemStatus      `json:"status" db:"status"`
	ImageURL     string          `json:"image_url,omitempty" db:"image_url"`
	Description  string          `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// BelowReorderLevel reports whether on-hand stock has reached the reorder threshold
func (i *CatalogItem) BelowReorderLevel() bool {
	return i.Stock <= i.ReorderLevel
}

// MovementType classifies a stock ledger entry
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
	MovementRestock    MovementType = "restock"
)

// StockMovement is one append-only ledger row recording a stock change.
// Checkout writes one row per sold line in the same transaction as the
// decrement, so the ledger can never diverge from the on-hand column.
type StockMovement struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	ItemID         uuid.UUID    `json:"item_id" db:"item_id"`
	Type           MovementType `json:"type" db:"type"`
	Quantity       int          `json:"quantity" db:"quantity"` // negative for sales
	ResultingStock int          `json:"resulting_stock" db:"resulting_stock"`
	Reference      string       `json:"reference,omitempty" db:"reference"` // e.g. sale number
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}
