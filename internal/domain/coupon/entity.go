package coupon

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType represents how the discount value is interpreted
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Coupon is a BRL discount applicable to credit package purchases.
type Coupon struct {
	ID            uuid.UUID       `db:"id"`
	Code          string          `db:"code"`
	DiscountType  DiscountType    `db:"discount_type"`
	DiscountValue decimal.Decimal `db:"discount_value"`
	MinOrderValue decimal.Decimal `db:"min_order_value"`
	UsageLimit    sql.NullInt64   `db:"usage_limit"`
	PerUserLimit  sql.NullInt64   `db:"per_user_limit"`
	TimesUsed     int64           `db:"times_used"`
	ExpiresAt     sql.NullTime    `db:"expires_at"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Discount returns the BRL discount for orderValue, rounded to cents and
// never larger than the order itself.
func (c *Coupon) Discount(orderValue decimal.Decimal) decimal.Decimal {
	if !orderValue.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercent:
		d = orderValue.Mul(c.DiscountValue).Div(hundred).Round(2)
	case DiscountFixed:
		d = c.DiscountValue.Round(2)
	default:
		return decimal.Zero
	}

	if d.GreaterThan(orderValue) {
		return orderValue
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Check reports why the coupon cannot be used, if it cannot. userUses is the
// number of times this user already applied it.
func (c *Coupon) Check(now time.Time, orderValue decimal.Decimal, userUses int64) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.ExpiresAt.Valid && !c.ExpiresAt.Time.After(now) {
		return ErrCouponExpired
	}
	if orderValue.LessThan(c.MinOrderValue) {
		return ErrMinOrderNotMet
	}
	if c.UsageLimit.Valid && c.TimesUsed >= c.UsageLimit.Int64 {
		return ErrUsageLimitReached
	}
	if c.PerUserLimit.Valid && userUses >= c.PerUserLimit.Int64 {
		return ErrPerUserLimitReached
	}
	return nil
}

// CouponUser records one application of a coupon to an order.
type CouponUser struct {
	ID             uuid.UUID       `db:"id"`
	CouponID       uuid.UUID       `db:"coupon_id"`
	UserID         uuid.UUID       `db:"user_id"`
	OrderValue     decimal.Decimal `db:"order_value"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	OrderRef       string          `db:"order_ref"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Quote is the priced result of applying a coupon to an order.
type Quote struct {
	Coupon     *Coupon
	OrderValue decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
}

func newQuote(c *Coupon, orderValue decimal.Decimal) *Quote {
	d := c.Discount(orderValue)
	return &Quote{Coupon: c, OrderValue: orderValue, Discount: d, Total: orderValue.Sub(d)}
}
