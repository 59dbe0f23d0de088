package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shopdesk/internal/domain"

	"github.com/google/uuid"
)

// StockMovementRepository defines the interface for the append-only stock
// ledger. Movements are written in the same transaction as the stock
// decrement they describe.
type StockMovementRepository interface {
	Record(ctx context.Context, tx *sql.Tx, movement *domain.StockMovement) error
	ListByItem(ctx context.Context, itemID uuid.UUID, page, pageSize int) ([]*domain.StockMovement, int, error)
}

type stockMovementRepository struct {
	db *sql.DB
}

// NewStockMovementRepository creates a new instance of StockMovementRepository
func NewStockMovementRepository(db *sql.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

// Record appends one ledger row inside the caller's transaction
func (r *stockMovementRepository) Record(ctx context.Context, tx *sql.Tx, movement *domain.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, item_id, type, quantity, resulting_stock, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		movement.ID,
		movement.ItemID,
		movement.Type,
		movement.Quantity,
		movement.ResultingStock,
		movement.Reference,
		movement.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}

	return nil
}

// ListByItem retrieves the movement history for an item, newest first
func (r *stockMovementRepository) ListByItem(ctx context.Context, itemID uuid.UUID, page, pageSize int) ([]*domain.StockMovement, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_movements WHERE item_id = $1`, itemID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count stock movements: %w", err)
	}

	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, type, quantity, resulting_stock, reference, created_at
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, itemID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.StockMovement{}
	for rows.Next() {
		m := &domain.StockMovement{}
		err := rows.Scan(
			&m.ID,
			&m.ItemID,
			&m.Type,
			&m.Quantity,
			&m.ResultingStock,
			&m.Reference,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating stock movements: %w", err)
	}

	return movements, total, nil
}
