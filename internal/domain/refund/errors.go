package refund

import "errors"

var (
	ErrRefundNotFound   = errors.New("refund not found")
	ErrAlreadyProcessed = errors.New("refund already processed")
	ErrInvalidCredits   = errors.New("credits must be greater than 0")
	ErrInvalidAmount    = errors.New("amount must not be negative")
	ErrInternal         = errors.New("internal error")
)
