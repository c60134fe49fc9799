package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func entries(deltas ...int64) []Transaction {
	txs := make([]Transaction, 0, len(deltas))
	var balance int64
	for _, d := range deltas {
		tx := Transaction{Type: TxTypeCredit, Amount: d}
		if d < 0 {
			tx = Transaction{Type: TxTypeDebit, Amount: -d}
		}
		balance += d
		tx.BalanceAfter = balance
		txs = append(txs, tx)
	}
	return txs
}

func TestReplayReconstructsBalance(t *testing.T) {
	balance, err := Replay(entries(100, -30, 50, -120))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected 0, got %d", balance)
	}

	balance, err = Replay(nil)
	if err != nil || balance != 0 {
		t.Fatalf("empty ledger must replay to 0, got %d, %v", balance, err)
	}
}

func TestReplayDetectsBrokenSnapshot(t *testing.T) {
	txs := entries(100, -30)
	txs[1].BalanceAfter = 60

	if _, err := Replay(txs); !errors.Is(err, ErrLedgerCorrupted) {
		t.Fatalf("expected ErrLedgerCorrupted, got %v", err)
	}
}

func TestReplayRejectsNegativeBalance(t *testing.T) {
	txs := []Transaction{{Type: TxTypeDebit, Amount: 10, BalanceAfter: -10}}
	if _, err := Replay(txs); !errors.Is(err, ErrLedgerCorrupted) {
		t.Fatalf("expected ErrLedgerCorrupted, got %v", err)
	}
}

func TestSourceValidation(t *testing.T) {
	if err := (Source{}).validate(); err != nil {
		t.Fatalf("zero source must be valid, got %v", err)
	}
	if err := FromGiftCard(uuid.New()).validate(); err != nil {
		t.Fatalf("gift card source must be valid, got %v", err)
	}
	if err := (Source{Kind: "casino", ID: uuid.New()}).validate(); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource for unknown kind, got %v", err)
	}
	if err := (Source{Kind: SourceGame}).validate(); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource for missing id, got %v", err)
	}
}

func TestTransactionSourceRoundTrip(t *testing.T) {
	id := uuid.New()
	kind := string(SourceRefund)
	tx := Transaction{SourceType: &kind, SourceID: &id}

	if got := tx.Source(); got != FromRefund(id) {
		t.Fatalf("unexpected source %+v", got)
	}
	if !(Transaction{}).Source().IsZero() {
		t.Fatal("transaction without reference must have zero source")
	}
}
