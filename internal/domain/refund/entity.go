package refund

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents refund status
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Refund converts wallet credits back into money (BRL), decided by an admin.
type Refund struct {
	ID         uuid.UUID       `db:"id"`
	UserID     uuid.UUID       `db:"user_id"`
	Credits    int64           `db:"credits"`
	AmountBRL  decimal.Decimal `db:"amount_brl"`
	Status     Status          `db:"status"`
	Reason     string          `db:"reason"`
	ApprovedBy uuid.NullUUID   `db:"approved_by"`
	ApprovedAt sql.NullTime    `db:"approved_at"`
	RejectedAt sql.NullTime    `db:"rejected_at"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// IsPending returns true while the refund awaits a decision
func (r *Refund) IsPending() bool {
	return r.Status == StatusPending
}
