package coupon

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bingoclub/bingo-api/internal/pkg/codegen"
)

// Service handles coupon validation and usage accounting
type Service struct {
	repo Repository
	db   sqlx.QueryerContext
	now  func() time.Time
}

// NewService creates coupon service. db serves the read-only usage count in Validate.
func NewService(repo Repository, db sqlx.QueryerContext) *Service {
	return &Service{repo: repo, db: db, now: time.Now}
}

// CreateInput describes a new coupon
type CreateInput struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.Decimal
	UsageLimit    *int64
	PerUserLimit  *int64
	ExpiresAt     *time.Time
}

func (in CreateInput) validate(now time.Time) error {
	switch in.DiscountType {
	case DiscountPercent:
		if !in.DiscountValue.IsPositive() || in.DiscountValue.GreaterThan(hundred) {
			return ErrInvalidDiscount
		}
	case DiscountFixed:
		if !in.DiscountValue.IsPositive() {
			return ErrInvalidDiscount
		}
	default:
		return ErrInvalidDiscount
	}
	if in.MinOrderValue.IsNegative() {
		return ErrInvalidDiscount
	}
	if (in.UsageLimit != nil && *in.UsageLimit <= 0) || (in.PerUserLimit != nil && *in.PerUserLimit <= 0) {
		return ErrInvalidDiscount
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return ErrCouponExpired
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// Create registers a coupon (admin)
func (s *Service) Create(ctx context.Context, in CreateInput) (*Coupon, error) {
	if err := in.validate(s.now()); err != nil {
		return nil, err
	}

	c := &Coupon{
		ID:            uuid.New(),
		Code:          codegen.Normalize(in.Code),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinOrderValue: in.MinOrderValue,
		UsageLimit:    nullInt(in.UsageLimit),
		PerUserLimit:  nullInt(in.PerUserLimit),
		IsActive:      true,
	}
	if in.ExpiresAt != nil {
		c.ExpiresAt = sql.NullTime{Time: in.ExpiresAt.UTC(), Valid: true}
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	log.Info().Str("coupon_id", c.ID.String()).Str("code", c.Code).Str("type", string(c.DiscountType)).Msg("coupon created")
	return c, nil
}

// Validate prices orderValue with the coupon without consuming it.
func (s *Service) Validate(ctx context.Context, code string, userID uuid.UUID, orderValue decimal.Decimal) (*Quote, error) {
	c, err := s.repo.GetByCode(ctx, codegen.Normalize(code))
	if err != nil {
		return nil, err
	}
	uses, err := s.repo.CountUserUses(ctx, s.db, c.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := c.Check(s.now(), orderValue, uses); err != nil {
		return nil, err
	}
	return newQuote(c, orderValue), nil
}

// ApplyTx consumes one use of the coupon inside the caller's transaction.
// The coupon row stays locked until the caller commits, so usage limits
// cannot be overshot by concurrent purchases.
func (s *Service) ApplyTx(ctx context.Context, tx *sqlx.Tx, code string, userID uuid.UUID, orderValue decimal.Decimal, orderRef string) (*Quote, error) {
	c, err := s.repo.LockByCode(ctx, tx, codegen.Normalize(code))
	if err != nil {
		return nil, err
	}
	uses, err := s.repo.CountUserUses(ctx, tx, c.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := c.Check(s.now(), orderValue, uses); err != nil {
		return nil, err
	}

	q := newQuote(c, orderValue)
	err = s.repo.RecordUsage(ctx, tx, &CouponUser{
		ID:             uuid.New(),
		CouponID:       c.ID,
		UserID:         userID,
		OrderValue:     orderValue,
		DiscountAmount: q.Discount,
		OrderRef:       orderRef,
	})
	if err != nil {
		return nil, err
	}
	c.TimesUsed++
	return q, nil
}

// SetActive enables or disables a coupon (admin)
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Coupon, error) {
	c, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	log.Info().Str("coupon_id", id.String()).Bool("active", active).Msg("coupon status changed")
	return c, nil
}

// List returns coupons newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Coupon, error) {
	return s.repo.List(ctx, limit, offset)
}
