package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a staff account that can sign in and run the register
type Operator struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RefreshToken is a stored long-lived token that can mint new access tokens
type RefreshToken struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OperatorID uuid.UUID `json:"operator_id" db:"operator_id"`
	Token      string    `json:"token" db:"token"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Revoked    bool      `json:"revoked" db:"revoked"`
}

// OperatorIdentity is the authenticated identity the checkout flow receives
// as an explicit parameter instead of reading session state.
type OperatorIdentity struct {
	ID          uuid.UUID
	DisplayName string
}

// IsZero reports whether no operator is present
func (o OperatorIdentity) IsZero() bool {
	return o.ID == uuid.Nil
}
