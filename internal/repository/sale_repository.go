package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopdesk/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound        = errors.New("sale not found")
	ErrDuplicateSaleNumber = errors.New("sale with this number already exists")
)

// SaleRepository defines the interface for sale record data access.
// Sale rows are immutable once created; there is no update path.
type SaleRepository interface {
	// Create inserts the sale inside the caller's checkout transaction.
	Create(ctx context.Context, tx *sql.Tx, sale *domain.SaleRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.SaleRecord, error)
	FindByNumber(ctx context.Context, saleNumber string) (*domain.SaleRecord, error)
	List(ctx context.Context, from, to *time.Time, page, pageSize int) ([]*domain.SaleRecord, int, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleColumns = `id, sale_number, lines, subtotal, discount_type, discount_value, discount_amount, total, payment_method, payment_splits, buyer_name, buyer_phone, operator_id, operator_name, note, created_at`

// Create inserts a new sale record with the line snapshot serialized as JSONB
func (r *saleRepository) Create(ctx context.Context, tx *sql.Tx, sale *domain.SaleRecord) error {
	lines, err := json.Marshal(sale.Lines)
	if err != nil {
		return fmt.Errorf("failed to serialize sale lines: %w", err)
	}

	var splits []byte
	if len(sale.PaymentSplits) > 0 {
		splits, err = json.Marshal(sale.PaymentSplits)
		if err != nil {
			return fmt.Errorf("failed to serialize payment splits: %w", err)
		}
	}

	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		sale.ID,
		sale.SaleNumber,
		lines,
		sale.Subtotal,
		sale.DiscountType,
		sale.DiscountValue,
		sale.DiscountAmount,
		sale.Total,
		sale.PaymentMethod,
		splits,
		sale.BuyerName,
		sale.BuyerPhone,
		sale.OperatorID,
		sale.OperatorName,
		sale.Note,
		sale.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSaleNumber
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	return nil
}

func scanSale(row interface{ Scan(...interface{}) error }) (*domain.SaleRecord, error) {
	sale := &domain.SaleRecord{}
	var lines []byte
	var splits []byte

	err := row.Scan(
		&sale.ID,
		&sale.SaleNumber,
		&lines,
		&sale.Subtotal,
		&sale.DiscountType,
		&sale.DiscountValue,
		&sale.DiscountAmount,
		&sale.Total,
		&sale.PaymentMethod,
		&splits,
		&sale.BuyerName,
		&sale.BuyerPhone,
		&sale.OperatorID,
		&sale.OperatorName,
		&sale.Note,
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lines, &sale.Lines); err != nil {
		return nil, fmt.Errorf("failed to deserialize sale lines: %w", err)
	}
	if len(splits) > 0 {
		if err := json.Unmarshal(splits, &sale.PaymentSplits); err != nil {
			return nil, fmt.Errorf("failed to deserialize payment splits: %w", err)
		}
	}

	return sale, nil
}

// FindByID retrieves a sale by ID using parameterized queries
func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	return sale, nil
}

// FindByNumber retrieves a sale by its human-readable sale number
func (r *saleRepository) FindByNumber(ctx context.Context, saleNumber string) (*domain.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE sale_number = $1`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, saleNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by number: %w", err)
	}

	return sale, nil
}

// List retrieves sales within an optional date range, newest first
func (r *saleRepository) List(ctx context.Context, from, to *time.Time, page, pageSize int) ([]*domain.SaleRecord, int, error) {
	whereClause := ""
	args := []interface{}{}

	if from != nil {
		args = append(args, *from)
		whereClause = fmt.Sprintf("WHERE created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		clause := fmt.Sprintf("created_at <= $%d", len(args))
		if whereClause == "" {
			whereClause = "WHERE " + clause
		} else {
			whereClause += " AND " + clause
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	offset := (page - 1) * pageSize
	argIndex := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM sales
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, saleColumns, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.SaleRecord{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, total, nil
}
