package coupon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidateRequest is the body of POST /coupons/validate
type ValidateRequest struct {
	Code       string          `json:"code" validate:"required,max=32"`
	OrderValue decimal.Decimal `json:"order_value"`
}

// CreateCouponRequest is the body of the admin create endpoint
type CreateCouponRequest struct {
	Code          string          `json:"code" validate:"required,min=3,max=32"`
	DiscountType  string          `json:"discount_type" validate:"required,oneof=percent fixed"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue decimal.Decimal `json:"min_order_value"`
	UsageLimit    *int64          `json:"usage_limit,omitempty"`
	PerUserLimit  *int64          `json:"per_user_limit,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
}

// QuoteResponse shows the price of an order after the coupon
type QuoteResponse struct {
	Code         string          `json:"code"`
	DiscountType DiscountType    `json:"discount_type"`
	OrderValue   decimal.Decimal `json:"order_value"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// QuoteResponseFromQuote converts a quote to response
func QuoteResponseFromQuote(q *Quote) *QuoteResponse {
	return &QuoteResponse{
		Code:         q.Coupon.Code,
		DiscountType: q.Coupon.DiscountType,
		OrderValue:   q.OrderValue,
		Discount:     q.Discount,
		Total:        q.Total,
	}
}

// CouponResponse is the admin view of a coupon
type CouponResponse struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinOrderValue decimal.Decimal `json:"min_order_value"`
	UsageLimit    *int64          `json:"usage_limit,omitempty"`
	PerUserLimit  *int64          `json:"per_user_limit,omitempty"`
	TimesUsed     int64           `json:"times_used"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CouponResponseFromEntity converts entity to response
func CouponResponseFromEntity(c *Coupon) *CouponResponse {
	resp := &CouponResponse{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		TimesUsed:     c.TimesUsed,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
	}
	if c.UsageLimit.Valid {
		v := c.UsageLimit.Int64
		resp.UsageLimit = &v
	}
	if c.PerUserLimit.Valid {
		v := c.PerUserLimit.Int64
		resp.PerUserLimit = &v
	}
	if c.ExpiresAt.Valid {
		t := c.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	return resp
}
