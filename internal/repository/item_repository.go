package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateSKU  = errors.New("item with this SKU already exists")
	ErrNegativeStock = errors.New("stock cannot go negative")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ItemFilter narrows catalog reads server-side. Nil fields are ignored.
type ItemFilter struct {
	Category *domain.Category
	Status   *domain.ItemStatus
	Brand    *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// ItemRepository defines the interface for catalog item data access
type ItemRepository interface {
	Create(ctx context.Context, item *domain.CatalogItem) error
	Update(ctx context.Context, item *domain.CatalogItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
	FindBySKU(ctx context.Context, sku string) (*domain.CatalogItem, error)
	List(ctx context.Context, filter ItemFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.CatalogItem, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.CatalogItem, int, error)
	// DecrementStock conditionally subtracts qty from the item's on-hand
	// stock inside the caller's transaction. The decrement only applies when
	// current stock >= qty; otherwise domain.ErrStockConflict is returned and
	// no row is changed. Returns the resulting stock on success.
	DecrementStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) (int, error)
}

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new instance of ItemRepository
func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, name, category, brand, model, sku, barcode, price, cost, stock, reorder_level, status, image_url, description, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }) (*domain.CatalogItem, error) {
	item := &domain.CatalogItem{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Brand,
		&item.Model,
		&item.SKU,
		&item.Barcode,
		&item.Price,
		&item.Cost,
		&item.Stock,
		&item.ReorderLevel,
		&item.Status,
		&item.ImageURL,
		&item.Description,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Create inserts a new catalog item using parameterized queries
func (r *itemRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.Name,
		item.Category,
		item.Brand,
		item.Model,
		item.SKU,
		item.Barcode,
		item.Price,
		item.Cost,
		item.Stock,
		item.ReorderLevel,
		item.Status,
		item.ImageURL,
		item.Description,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// Update updates an existing catalog item using parameterized queries.
// Stock is deliberately not written here; stock only changes through
// DecrementStock or an explicit restock adjustment.
func (r *itemRepository) Update(ctx context.Context, item *domain.CatalogItem) error {
	query := `
		UPDATE items
		SET name = $2, category = $3, brand = $4, model = $5, sku = $6,
		    barcode = $7, price = $8, cost = $9, reorder_level = $10,
		    status = $11, image_url = $12, description = $13, updated_at = $14
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.Name,
		item.Category,
		item.Brand,
		item.Model,
		item.SKU,
		item.Barcode,
		item.Price,
		item.Cost,
		item.ReorderLevel,
		item.Status,
		item.ImageURL,
		item.Description,
		item.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("failed to update item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Delete removes a catalog item using parameterized queries
func (r *itemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM items WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// FindByID retrieves a catalog item by ID using parameterized queries
func (r *itemRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item by ID: %w", err)
	}

	return item, nil
}

// FindBySKU retrieves a catalog item by its unique SKU
func (r *itemRepository) FindBySKU(ctx context.Context, sku string) (*domain.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, sku))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item by SKU: %w", err)
	}

	return item, nil
}

// List retrieves catalog items with optional filtering, pagination, and sorting
func (r *itemRepository) List(ctx context.Context, filter ItemFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.CatalogItem, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"stock":      true,
		"sku":        true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	whereClause, args := buildItemFilter(filter)
	argIndex := len(args) + 1

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM items %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM items
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, itemColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating items: %w", err)
	}

	return items, total, nil
}

// Search searches catalog items by name, SKU or barcode with pagination
func (r *itemRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.CatalogItem, int, error) {
	searchPattern := "%" + query + "%"

	countQuery := `
		SELECT COUNT(*)
		FROM items
		WHERE name ILIKE $1 OR sku ILIKE $1 OR barcode ILIKE $1
	`
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, searchPattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	offset := (page - 1) * pageSize

	searchQuery := fmt.Sprintf(`
		SELECT %s
		FROM items
		WHERE name ILIKE $1 OR sku ILIKE $1 OR barcode ILIKE $1
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`, itemColumns)

	rows, err := r.db.QueryContext(ctx, searchQuery, searchPattern, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating search results: %w", err)
	}

	return items, total, nil
}

// DecrementStock applies "decrement only if current >= requested" so two
// concurrent sales of the last unit cannot both succeed.
func (r *itemRepository) DecrementStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrNegativeStock
	}

	query := `
		UPDATE items
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`

	var remaining int
	err := tx.QueryRowContext(ctx, query, id, qty).Scan(&remaining)
	if err != nil {
		if err == sql.ErrNoRows {
			// Either the item is gone or stock fell below the requested
			// quantity since the cart's advisory check.
			return 0, fmt.Errorf("%w: item %s", domain.ErrStockConflict, id)
		}
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return remaining, nil
}

func buildItemFilter(filter ItemFilter) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	addClause := func(expr string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(expr, len(args)))
	}

	if filter.Category != nil {
		addClause("category = $%d", *filter.Category)
	}
	if filter.Status != nil {
		addClause("status = $%d", *filter.Status)
	}
	if filter.Brand != nil {
		addClause("brand = $%d", *filter.Brand)
	}
	if filter.MinPrice != nil {
		addClause("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addClause("price <= $%d", *filter.MaxPrice)
	}

	if len(clauses) == 0 {
		return "", args
	}

	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// isUniqueViolation reports whether err is a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
