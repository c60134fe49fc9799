package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount: must be greater than 0")
	ErrInvalidSource       = errors.New("invalid transaction source")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrLedgerCorrupted     = errors.New("ledger replay mismatch")
	ErrDuplicateEntry      = errors.New("source already has an entry of this type")
	ErrInternal            = errors.New("internal error")
)
