package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/metrics"
)

// Service is the single writer of wallet balances.
type Service struct {
	repo   *Repository
	runner *database.TxRunner
}

func NewService(repo *Repository, runner *database.TxRunner) *Service {
	return &Service{repo: repo, runner: runner}
}

// Credit adds amount to the user's wallet, creating the wallet on first use.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, source Source) (*Transaction, error) {
	return s.run(ctx, entry{userID: userID, txType: TxTypeCredit, amount: amount, description: description, source: source})
}

// Debit subtracts amount from the user's wallet.
// Returns ErrInsufficientBalance when the locked balance is lower than amount.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, description string, source Source) (*Transaction, error) {
	return s.run(ctx, entry{userID: userID, txType: TxTypeDebit, amount: amount, description: description, source: source})
}

// CreditTx credits inside a caller-owned transaction. Nothing is persisted until the caller commits.
func (s *Service) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source Source) (*Transaction, error) {
	return s.applyTx(ctx, tx, entry{userID: userID, txType: TxTypeCredit, amount: amount, description: description, source: source})
}

// DebitTx debits inside a caller-owned transaction. Nothing is persisted until the caller commits.
func (s *Service) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source Source) (*Transaction, error) {
	return s.applyTx(ctx, tx, entry{userID: userID, txType: TxTypeDebit, amount: amount, description: description, source: source})
}

func (s *Service) run(ctx context.Context, e entry) (*Transaction, error) {
	var out *Transaction
	err := s.runner.Run(ctx, func(tx *sqlx.Tx) error {
		t, err := s.applyTx(ctx, tx, e)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", e.userID.String()).
		Str("type", string(e.txType)).
		Int64("amount", e.amount).
		Int64("balance_after", out.BalanceAfter).
		Str("source", e.source.String()).
		Msg("wallet transaction applied")
	return out, nil
}

func (s *Service) applyTx(ctx context.Context, tx *sqlx.Tx, e entry) (*Transaction, error) {
	if e.amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.source.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.description) == "" {
		e.description = "wallet " + string(e.txType)
	}

	t, err := s.repo.apply(ctx, tx, e)
	metrics.RecordLedger(string(e.txType), err)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrWalletNotFound) || errors.Is(err, ErrDuplicateEntry) {
			log.Debug().Str("user_id", e.userID.String()).Int64("amount", e.amount).Err(err).Msg("wallet transaction rejected")
			return nil, err
		}
		if database.IsLockTimeout(err) {
			return nil, fmt.Errorf("%w: %v", database.ErrLockTimeout, err)
		}
		return nil, err
	}
	return t, nil
}

// GetBalance returns 0 for users that never had a wallet entry.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if errors.Is(err, ErrWalletNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// ListTransactions returns paginated history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if errors.Is(err, ErrWalletNotFound) {
		return []Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, w.ID, limit, offset)
}

// Audit replays the wallet's full log and compares it with the stored balance.
func (s *Service) Audit(ctx context.Context, userID uuid.UUID) (int64, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	txs, err := s.repo.AllTransactions(ctx, w.ID)
	if err != nil {
		return 0, err
	}
	replayed, err := Replay(txs)
	if err != nil {
		return 0, err
	}
	if replayed != w.Balance {
		log.Error().Str("user_id", userID.String()).Int64("balance", w.Balance).Int64("replayed", replayed).Msg("wallet balance diverges from ledger")
		return 0, fmt.Errorf("%w: stored=%d replayed=%d", ErrLedgerCorrupted, w.Balance, replayed)
	}
	return replayed, nil
}
