package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TxType is the direction of a ledger entry.
type TxType string

const (
	TxTypeCredit TxType = "credit"
	TxTypeDebit  TxType = "debit"
)

// TxStatus of a ledger entry. Entries written by Apply are always completed.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

// SourceKind names the entity that caused a balance change.
type SourceKind string

const (
	SourceGame     SourceKind = "game"
	SourceRefund   SourceKind = "refund"
	SourceGiftCard SourceKind = "gift_card"
	SourceCoupon   SourceKind = "coupon"
	SourcePackage  SourceKind = "package"
)

func (k SourceKind) valid() bool {
	switch k {
	case SourceGame, SourceRefund, SourceGiftCard, SourceCoupon, SourcePackage:
		return true
	}
	return false
}

// Source is the audit reference of a transaction: a kind plus the entity id.
// The zero value means "no source".
type Source struct {
	Kind SourceKind
	ID   uuid.UUID
}

func FromGame(id uuid.UUID) Source     { return Source{Kind: SourceGame, ID: id} }
func FromRefund(id uuid.UUID) Source   { return Source{Kind: SourceRefund, ID: id} }
func FromGiftCard(id uuid.UUID) Source { return Source{Kind: SourceGiftCard, ID: id} }
func FromCoupon(id uuid.UUID) Source   { return Source{Kind: SourceCoupon, ID: id} }
func FromPackage(id uuid.UUID) Source  { return Source{Kind: SourcePackage, ID: id} }

func (s Source) IsZero() bool {
	return s.Kind == "" && s.ID == uuid.Nil
}

func (s Source) validate() error {
	if s.IsZero() {
		return nil
	}
	if !s.Kind.valid() || s.ID == uuid.Nil {
		return fmt.Errorf("%w: %q/%s", ErrInvalidSource, s.Kind, s.ID)
	}
	return nil
}

func (s Source) String() string {
	if s.IsZero() {
		return ""
	}
	return string(s.Kind) + ":" + s.ID.String()
}

type Wallet struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger row.
type Transaction struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Seq          int64      `db:"seq" json:"-"`
	WalletID     uuid.UUID  `db:"wallet_id" json:"wallet_id"`
	Type         TxType     `db:"type" json:"type"`
	Amount       int64      `db:"amount" json:"amount"`
	BalanceAfter int64      `db:"balance_after" json:"balance_after"`
	Status       TxStatus   `db:"status" json:"status"`
	Description  string     `db:"description" json:"description"`
	SourceType   *string    `db:"source_type" json:"source_type,omitempty"`
	SourceID     *uuid.UUID `db:"source_id" json:"source_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Source returns the typed reference stored on the row.
func (t Transaction) Source() Source {
	if t.SourceType == nil || t.SourceID == nil {
		return Source{}
	}
	return Source{Kind: SourceKind(*t.SourceType), ID: *t.SourceID}
}

// Delta is the signed balance change of the entry.
func (t Transaction) Delta() int64 {
	if t.Type == TxTypeDebit {
		return -t.Amount
	}
	return t.Amount
}

// Replay folds transactions (in ledger order) from a zero balance and checks
// every balance_after snapshot on the way. It returns the reconstructed balance.
func Replay(txs []Transaction) (int64, error) {
	var balance int64
	for i, tx := range txs {
		if tx.Amount <= 0 {
			return 0, fmt.Errorf("%w: entry %d has non-positive amount %d", ErrLedgerCorrupted, i, tx.Amount)
		}
		balance += tx.Delta()
		if balance < 0 {
			return 0, fmt.Errorf("%w: entry %d drives balance negative", ErrLedgerCorrupted, i)
		}
		if tx.BalanceAfter != balance {
			return 0, fmt.Errorf("%w: entry %d balance_after=%d, replayed=%d", ErrLedgerCorrupted, i, tx.BalanceAfter, balance)
		}
	}
	return balance, nil
}
