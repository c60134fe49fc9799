package giftcard

import "errors"

var (
	ErrGiftCardNotFound   = errors.New("gift card not found")
	ErrNotRedeemable      = errors.New("gift card is not redeemable")
	ErrInvalidCreditValue = errors.New("credit value must be greater than 0")
	ErrInvalidCount       = errors.New("count must be between 1 and 100")
	ErrInvalidExpiry      = errors.New("expiry must be in the future")
	ErrCannotDisable      = errors.New("only active gift cards can be disabled")
	ErrCannotReactivate   = errors.New("only disabled or expired gift cards can be reactivated")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique gift card code")
	ErrInternal           = errors.New("internal error")
)
