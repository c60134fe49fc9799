package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const (
	constraintCode     = "coupons_code_key"
	constraintOrderRef = "coupon_users_order_ref_key"
)

const couponColumns = `id, code, discount_type, discount_value, min_order_value, usage_limit, per_user_limit, times_used, expires_at, is_active, created_at`

// Repository defines coupon data access
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context, limit, offset int) ([]*Coupon, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Coupon, error)
	CountUserUses(ctx context.Context, q sqlx.QueryerContext, couponID, userID uuid.UUID) (int64, error)

	LockByCode(ctx context.Context, tx *sqlx.Tx, code string) (*Coupon, error)
	RecordUsage(ctx context.Context, tx *sqlx.Tx, u *CouponUser) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates coupon repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_order_value, usage_limit, per_user_limit, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinOrderValue,
		c.UsageLimit, c.PerUserLimit, c.ExpiresAt, c.IsActive).Scan(&c.CreatedAt)
	if err != nil {
		if database.UniqueConstraint(err) == constraintCode {
			return ErrCodeTaken
		}
		return fmt.Errorf("%w: insert coupon", ErrInternal)
	}
	return nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Coupon
	err := r.db.GetContext(ctx, &c, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get coupon", ErrInternal)
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	coupons := []*Coupon{}
	err := r.db.SelectContext(ctx, &coupons, `
		SELECT `+couponColumns+`
		FROM coupons
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list coupons", ErrInternal)
	}
	return coupons, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Coupon
	err := r.db.GetContext(ctx, &c, `
		UPDATE coupons SET is_active = $1 WHERE id = $2
		RETURNING `+couponColumns, active, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update coupon", ErrInternal)
	}
	return &c, nil
}

func (r *repository) CountUserUses(ctx context.Context, q sqlx.QueryerContext, couponID, userID uuid.UUID) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM coupon_users WHERE coupon_id = $1 AND user_id = $2`, couponID, userID)
	if err != nil {
		return 0, fmt.Errorf("count coupon uses: %w", err)
	}
	return n, nil
}

func (r *repository) LockByCode(ctx context.Context, tx *sqlx.Tx, code string) (*Coupon, error) {
	var c Coupon
	err := tx.GetContext(ctx, &c, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock coupon: %w", err)
	}
	return &c, nil
}

// RecordUsage inserts the usage row and bumps times_used. The order_ref
// uniqueness makes a replayed order fail with ErrAlreadyProcessed.
func (r *repository) RecordUsage(ctx context.Context, tx *sqlx.Tx, u *CouponUser) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO coupon_users (id, coupon_id, user_id, order_value, discount_amount, order_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.CouponID, u.UserID, u.OrderValue, u.DiscountAmount, u.OrderRef).Scan(&u.CreatedAt)
	if err != nil {
		if database.UniqueConstraint(err) == constraintOrderRef {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("insert coupon usage: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE coupons SET times_used = times_used + 1 WHERE id = $1`, u.CouponID); err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}
