package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotAuthenticated = errors.New("no authenticated operator")
	ErrStockConflict    = errors.New("stock changed concurrently")
)

// PaymentMethod is how a sale was paid
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMixed    PaymentMethod = "mixed"
)

// IsValid checks if the payment method is one of the known values
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMixed:
		return true
	}
	return false
}

// PaymentSplit is one portion of a mixed payment
type PaymentSplit struct {
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// SaleRecord is the immutable persisted result of a completed checkout.
// Lines hold the serialized cart-line snapshot taken at checkout time.
type SaleRecord struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SaleNumber     string          `json:"sale_number" db:"sale_number"`
	Lines          []CartLine      `json:"lines" db:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountType   DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value" db:"discount_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	Total          decimal.Decimal `json:"total" db:"total"`
	PaymentMethod  PaymentMethod   `json:"payment_method" db:"payment_method"`
	PaymentSplits  []PaymentSplit  `json:"payment_splits,omitempty" db:"payment_splits"`
	BuyerName      string          `json:"buyer_name,omitempty" db:"buyer_name"`
	BuyerPhone     string          `json:"buyer_phone,omitempty" db:"buyer_phone"`
	OperatorID     uuid.UUID       `json:"operator_id" db:"operator_id"`
	OperatorName   string          `json:"operator_name" db:"operator_name"`
	Note           string          `json:"note,omitempty" db:"note"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// NewSaleNumber generates a human-readable sale number in the form
// POS-YYYYMMDD-XXXXXX where the suffix is random hex. The suffix alone does
// not guarantee uniqueness; the sales table carries a unique constraint and
// checkout regenerates on collision.
func NewSaleNumber(now time.Time) string {
	suffix := make([]byte, 3)
	// rand.Read on crypto/rand never fails on supported platforms
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("POS-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix)))
}
