package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const constraintSourceEntry = "wallet_transactions_source_key"

// Repository provides wallet balance and transaction log persistence.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// entry is one balance mutation to apply under the wallet lock.
type entry struct {
	userID      uuid.UUID
	txType      TxType
	amount      int64
	description string
	source      Source
}

func (r *Repository) ensureWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) updateBalance(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, balance int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2`, balance, walletID)
	return err
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	return tx.QueryRowxContext(ctx, `
		INSERT INTO wallet_transactions (wallet_id, type, amount, balance_after, status, description, source_type, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, seq, created_at
	`, t.WalletID, string(t.Type), t.Amount, t.BalanceAfter, string(t.Status), t.Description, t.SourceType, t.SourceID).
		Scan(&t.ID, &t.Seq, &t.CreatedAt)
}

// apply runs the read-modify-write-insert sequence inside tx.
// The wallet row stays locked until the caller's transaction ends.
func (r *Repository) apply(ctx context.Context, tx *sqlx.Tx, e entry) (*Transaction, error) {
	if e.txType == TxTypeCredit {
		if err := r.ensureWallet(ctx, tx, e.userID); err != nil {
			return nil, fmt.Errorf("ensure wallet: %w", err)
		}
	}

	w, err := r.lockWallet(ctx, tx, e.userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	next := w.Balance + e.amount
	if e.txType == TxTypeDebit {
		if w.Balance < e.amount {
			return nil, ErrInsufficientBalance
		}
		next = w.Balance - e.amount
	}

	if err := r.updateBalance(ctx, tx, w.ID, next); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	t := &Transaction{
		WalletID:     w.ID,
		Type:         e.txType,
		Amount:       e.amount,
		BalanceAfter: next,
		Status:       TxStatusCompleted,
		Description:  e.description,
	}
	if !e.source.IsZero() {
		kind := string(e.source.Kind)
		id := e.source.ID
		t.SourceType = &kind
		t.SourceID = &id
	}

	if err := r.insertTransaction(ctx, tx, t); err != nil {
		if database.UniqueConstraint(err) == constraintSourceEntry {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var w Wallet
	err := r.db.GetContext(ctx2, &w, `
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get wallet", ErrInternal)
	}
	return &w, nil
}

// ListTransactions returns newest entries first.
func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	txs := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}
	return txs, nil
}

// AllTransactions returns the full log in ledger (lock acquisition) order.
func (r *Repository) AllTransactions(ctx context.Context, walletID uuid.UUID) ([]Transaction, error) {
	txs := make([]Transaction, 0)
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY seq ASC
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: load ledger", ErrInternal)
	}
	return txs, nil
}

var transactionColumns = strings.Join([]string{
	"id", "seq", "wallet_id", "type", "amount", "balance_after", "status",
	"description", "source_type", "source_id", "created_at",
}, ", ")
