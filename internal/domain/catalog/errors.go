package catalog

import "errors"

var (
	ErrPackageNotFound    = errors.New("credit package not found")
	ErrPackageInactive    = errors.New("credit package is not available")
	ErrAlreadyProcessed   = errors.New("payment already processed")
	ErrInvalidPaymentRef  = errors.New("payment reference is required")
	ErrInvalidPackageData = errors.New("package needs a name, positive credits and a non-negative price")
	ErrInternal           = errors.New("internal error")
)
