package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopdesk/internal/domain"
	"shopdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidPayment = errors.New("invalid payment")

// saleNumberAttempts bounds the regenerate-and-retry loop when the random
// sale-number suffix collides with an existing row.
const saleNumberAttempts = 3

// CheckoutService turns an operator's cart into a persisted sale plus
// inventory adjustments. The sale insert, the conditional stock decrements
// and the ledger rows all commit in one database transaction, so a sale can
// never be recorded against decrements that only partially applied.
type CheckoutService interface {
	CompleteSale(ctx context.Context, op domain.OperatorIdentity, payment domain.PaymentMethod, splits []domain.PaymentSplit) (*domain.SaleRecord, error)
	GetSale(ctx context.Context, id uuid.UUID) (*domain.SaleRecord, error)
	GetSaleByNumber(ctx context.Context, saleNumber string) (*domain.SaleRecord, error)
	ListSales(ctx context.Context, from, to *time.Time, page, pageSize int) ([]*domain.SaleRecord, int, error)
}

type checkoutService struct {
	db           *sql.DB
	saleRepo     repository.SaleRepository
	itemRepo     repository.ItemRepository
	movementRepo repository.StockMovementRepository
	carts        CartService
	catalog      CatalogService
	logger       *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	db *sql.DB,
	saleRepo repository.SaleRepository,
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
	carts CartService,
	catalog CatalogService,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		db:           db,
		saleRepo:     saleRepo,
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		carts:        carts,
		catalog:      catalog,
		logger:       logger,
	}
}

// CompleteSale persists the sale and applies all stock decrements
// atomically, then clears the cart and refreshes the catalog snapshot.
// The operator identity arrives as an explicit parameter; the service never
// reads session state.
func (s *checkoutService) CompleteSale(ctx context.Context, op domain.OperatorIdentity, payment domain.PaymentMethod, splits []domain.PaymentSplit) (*domain.SaleRecord, error) {
	if op.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}

	cart, totals := s.carts.Cart(op.ID)
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	if err := validatePayment(payment, splits, totals.Total); err != nil {
		return nil, err
	}

	var sale *domain.SaleRecord
	var err error
	for attempt := 0; attempt < saleNumberAttempts; attempt++ {
		sale = buildSaleRecord(op, cart, totals, payment, splits)
		err = s.commitSale(ctx, sale)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateSaleNumber) {
			return nil, err
		}
		s.logger.Warn("Sale number collision, regenerating",
			zap.String("sale_number", sale.SaleNumber),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to allocate a unique sale number: %w", err)
	}

	// The sale is durable from here on. Cart reset and the catalog resync
	// cannot undo it; a failed refresh only leaves the snapshot stale.
	s.carts.Clear(op.ID)
	if refreshErr := s.catalog.Refresh(ctx, repository.ItemFilter{}); refreshErr != nil {
		s.logger.Warn("Catalog refresh after checkout failed",
			zap.String("sale_number", sale.SaleNumber),
			zap.Error(refreshErr),
		)
	}

	s.logger.Info("Sale completed",
		zap.String("sale_number", sale.SaleNumber),
		zap.String("operator_id", op.ID.String()),
		zap.String("total", sale.Total.String()),
		zap.Int("lines", len(sale.Lines)),
	)
	return sale, nil
}

// commitSale runs the single atomic checkout transaction: the sale insert,
// one conditional decrement per line and one ledger row per line. Any
// failure rolls the whole sale back.
func (s *checkoutService) commitSale(ctx context.Context, sale *domain.SaleRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saleRepo.Create(ctx, tx, sale); err != nil {
		return err
	}

	for _, line := range sale.Lines {
		remaining, err := s.itemRepo.DecrementStock(ctx, tx, line.ItemID, line.Quantity)
		if err != nil {
			if errors.Is(err, domain.ErrStockConflict) {
				return fmt.Errorf("%w (%s)", err, line.SKU)
			}
			return err
		}

		movement := &domain.StockMovement{
			ID:             uuid.New(),
			ItemID:         line.ItemID,
			Type:           domain.MovementSale,
			Quantity:       -line.Quantity,
			ResultingStock: remaining,
			Reference:      sale.SaleNumber,
			CreatedAt:      sale.CreatedAt,
		}
		if err := s.movementRepo.Record(ctx, tx, movement); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}
	return nil
}

// GetSale returns one completed sale by ID
func (s *checkoutService) GetSale(ctx context.Context, id uuid.UUID) (*domain.SaleRecord, error) {
	return s.saleRepo.FindByID(ctx, id)
}

// GetSaleByNumber returns one completed sale by its receipt number
func (s *checkoutService) GetSaleByNumber(ctx context.Context, saleNumber string) (*domain.SaleRecord, error) {
	return s.saleRepo.FindByNumber(ctx, saleNumber)
}

// ListSales returns completed sales, optionally bounded by creation time
func (s *checkoutService) ListSales(ctx context.Context, from, to *time.Time, page, pageSize int) ([]*domain.SaleRecord, int, error) {
	return s.saleRepo.List(ctx, from, to, page, pageSize)
}

func buildSaleRecord(op domain.OperatorIdentity, cart *domain.Cart, totals domain.Totals, payment domain.PaymentMethod, splits []domain.PaymentSplit) *domain.SaleRecord {
	now := time.Now()
	return &domain.SaleRecord{
		ID:             uuid.New(),
		SaleNumber:     domain.NewSaleNumber(now),
		Lines:          append([]domain.CartLine{}, cart.Lines...),
		Subtotal:       totals.Subtotal,
		DiscountType:   cart.Discount.Type,
		DiscountValue:  cart.Discount.Value,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		PaymentMethod:  payment,
		PaymentSplits:  splits,
		BuyerName:      cart.BuyerName,
		BuyerPhone:     cart.BuyerPhone,
		OperatorID:     op.ID,
		OperatorName:   op.DisplayName,
		Note:           cart.Note,
		CreatedAt:      now,
	}
}

func validatePayment(payment domain.PaymentMethod, splits []domain.PaymentSplit, total decimal.Decimal) error {
	if !payment.IsValid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, payment)
	}
	if payment != domain.PaymentMixed {
		if len(splits) > 0 {
			return fmt.Errorf("%w: splits are only valid for mixed payments", ErrInvalidPayment)
		}
		return nil
	}

	if len(splits) < 2 {
		return fmt.Errorf("%w: mixed payment requires at least two splits", ErrInvalidPayment)
	}
	sum := decimal.Zero
	for _, split := range splits {
		if !split.Method.IsValid() || split.Method == domain.PaymentMixed {
			return fmt.Errorf("%w: invalid split method %q", ErrInvalidPayment, split.Method)
		}
		if split.Amount.IsNegative() || split.Amount.IsZero() {
			return fmt.Errorf("%w: split amounts must be positive", ErrInvalidPayment)
		}
		sum = sum.Add(split.Amount)
	}
	if !sum.Equal(total) {
		return fmt.Errorf("%w: splits sum to %s, total is %s", ErrInvalidPayment, sum, total)
	}
	return nil
}
