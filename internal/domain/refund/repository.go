package refund

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const refundColumns = `id, user_id, credits, amount_brl, status, reason, approved_by, approved_at, rejected_at, created_at, updated_at`

// Repository defines refund data access
type Repository interface {
	Create(ctx context.Context, r *Refund) error
	GetByID(ctx context.Context, id uuid.UUID) (*Refund, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Refund, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Refund, error)

	Lock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Refund, error)
	Decide(ctx context.Context, tx *sqlx.Tx, r *Refund) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates refund repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rf *Refund) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO refunds (id, user_id, credits, amount_brl, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, rf.ID, rf.UserID, rf.Credits, rf.AmountBRL, string(rf.Status), rf.Reason).Scan(&rf.CreatedAt, &rf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert refund", ErrInternal)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rf Refund
	err := r.db.GetContext(ctx, &rf, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRefundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get refund", ErrInternal)
	}
	return &rf, nil
}

func (r *repository) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	refunds := []*Refund{}
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT `+refundColumns+`
		FROM refunds
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, arg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list refunds", ErrInternal)
	}
	return refunds, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Refund, error) {
	return r.list(ctx, "user_id = $1", userID, limit, offset)
}

func (r *repository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Refund, error) {
	return r.list(ctx, "($1 = '' OR status = $1)", string(status), limit, offset)
}

func (r *repository) Lock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Refund, error) {
	var rf Refund
	err := tx.GetContext(ctx, &rf, `SELECT `+refundColumns+` FROM refunds WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRefundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock refund: %w", err)
	}
	return &rf, nil
}

// Decide persists the terminal state of a locked refund.
func (r *repository) Decide(ctx context.Context, tx *sqlx.Tx, rf *Refund) error {
	err := tx.QueryRowxContext(ctx, `
		UPDATE refunds
		SET status = $1, reason = $2, approved_by = $3, approved_at = $4, rejected_at = $5, updated_at = now()
		WHERE id = $6 AND status = 'pending'
		RETURNING updated_at
	`, string(rf.Status), rf.Reason, rf.ApprovedBy, rf.ApprovedAt, rf.RejectedAt, rf.ID).Scan(&rf.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	return nil
}
