package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopdesk/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOperatorNotFound      = errors.New("operator not found")
	ErrOperatorAlreadyExists = errors.New("operator with this email already exists")
)

// OperatorRepository defines the interface for operator account data access
type OperatorRepository interface {
	Create(ctx context.Context, operator *domain.Operator) error
	FindByEmail(ctx context.Context, email string) (*domain.Operator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error)
}

type operatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository creates a new instance of OperatorRepository
func NewOperatorRepository(db *sql.DB) OperatorRepository {
	return &operatorRepository{db: db}
}

// Create inserts a new operator using parameterized queries
func (r *operatorRepository) Create(ctx context.Context, operator *domain.Operator) error {
	query := `
		INSERT INTO operators (id, email, password_hash, display_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		operator.ID,
		operator.Email,
		operator.PasswordHash,
		operator.DisplayName,
		operator.Role,
		operator.CreatedAt,
		operator.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrOperatorAlreadyExists
		}
		return fmt.Errorf("failed to create operator: %w", err)
	}

	return nil
}

// FindByEmail retrieves an operator by email using parameterized queries
func (r *operatorRepository) FindByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	query := `
		SELECT id, email, password_hash, display_name, role, created_at, updated_at
		FROM operators
		WHERE email = $1
	`

	operator := &domain.Operator{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&operator.ID,
		&operator.Email,
		&operator.PasswordHash,
		&operator.DisplayName,
		&operator.Role,
		&operator.CreatedAt,
		&operator.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to find operator by email: %w", err)
	}

	return operator, nil
}

// FindByID retrieves an operator by ID using parameterized queries
func (r *operatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	query := `
		SELECT id, email, password_hash, display_name, role, created_at, updated_at
		FROM operators
		WHERE id = $1
	`

	operator := &domain.Operator{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&operator.ID,
		&operator.Email,
		&operator.PasswordHash,
		&operator.DisplayName,
		&operator.Role,
		&operator.CreatedAt,
		&operator.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to find operator by ID: %w", err)
	}

	return operator, nil
}
