package coupon

import "errors"

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrMinOrderNotMet      = errors.New("order value is below the coupon minimum")
	ErrUsageLimitReached   = errors.New("coupon usage limit reached")
	ErrPerUserLimitReached = errors.New("coupon already used the maximum times by this user")
	ErrAlreadyProcessed    = errors.New("coupon already applied to this order")
	ErrInvalidDiscount     = errors.New("invalid discount")
	ErrCodeTaken           = errors.New("coupon code already exists")
	ErrInternal            = errors.New("internal error")
)
