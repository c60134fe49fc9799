package refund

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

// Wallet is the ledger side of a refund.
type Wallet interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source ledger.Source) (*ledger.Transaction, error)
}

// Service handles refund requests and admin decisions
type Service struct {
	repo     Repository
	runner   *database.TxRunner
	wallet   Wallet
	notifier *notification.Service
	now      func() time.Time
}

// NewService creates refund service
func NewService(repo Repository, runner *database.TxRunner, wallet Wallet, notifier *notification.Service) *Service {
	return &Service{repo: repo, runner: runner, wallet: wallet, notifier: notifier, now: time.Now}
}

// RequestInput describes a refund request
type RequestInput struct {
	Credits   int64
	AmountBRL decimal.Decimal
	Reason    string
}

// Request opens a pending refund. The balance is checked up front so users
// get immediate feedback; the authoritative check happens on approval.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, in RequestInput) (*Refund, error) {
	if in.Credits <= 0 {
		return nil, ErrInvalidCredits
	}
	if in.AmountBRL.IsNegative() {
		return nil, ErrInvalidAmount
	}

	balance, err := s.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < in.Credits {
		return nil, ledger.ErrInsufficientBalance
	}

	rf := &Refund{
		ID:        uuid.New(),
		UserID:    userID,
		Credits:   in.Credits,
		AmountBRL: in.AmountBRL.Round(2),
		Status:    StatusPending,
		Reason:    strings.TrimSpace(in.Reason),
	}
	if err := s.repo.Create(ctx, rf); err != nil {
		return nil, err
	}

	log.Info().
		Str("refund_id", rf.ID.String()).
		Str("user_id", userID.String()).
		Int64("credits", rf.Credits).
		Str("amount_brl", rf.AmountBRL.StringFixed(2)).
		Msg("refund requested")
	return rf, nil
}

// Approve debits the refunded credits and closes the request. A refund that
// is no longer pending fails with ErrAlreadyProcessed and nothing is debited.
func (s *Service) Approve(ctx context.Context, adminID, id uuid.UUID) (*Refund, error) {
	var out *Refund
	err := s.runner.Run(ctx, func(tx *sqlx.Tx) error {
		rf, err := s.repo.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !rf.IsPending() {
			return ErrAlreadyProcessed
		}

		desc := "Refund of " + strconv.FormatInt(rf.Credits, 10) + " credits"
		if _, err := s.wallet.DebitTx(ctx, tx, rf.UserID, rf.Credits, desc, ledger.FromRefund(rf.ID)); err != nil {
			return err
		}

		rf.Status = StatusApproved
		rf.ApprovedBy = uuid.NullUUID{UUID: adminID, Valid: true}
		rf.ApprovedAt = sql.NullTime{Time: s.now().UTC(), Valid: true}
		if err := s.repo.Decide(ctx, tx, rf); err != nil {
			return err
		}
		out = rf
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) || errors.Is(err, ledger.ErrInsufficientBalance) {
			log.Warn().Str("refund_id", id.String()).Err(err).Msg("refund approval rejected")
		}
		return nil, err
	}

	log.Info().
		Str("refund_id", out.ID.String()).
		Str("admin_id", adminID.String()).
		Int64("credits", out.Credits).
		Msg("refund approved")
	s.notifier.NotifyRefundProcessed(ctx, out.UserID, out.ID, true)
	return out, nil
}

// Reject closes a pending refund without touching the wallet.
func (s *Service) Reject(ctx context.Context, adminID, id uuid.UUID, reason string) (*Refund, error) {
	var out *Refund
	err := s.runner.Run(ctx, func(tx *sqlx.Tx) error {
		rf, err := s.repo.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !rf.IsPending() {
			return ErrAlreadyProcessed
		}

		rf.Status = StatusRejected
		if reason = strings.TrimSpace(reason); reason != "" {
			rf.Reason = reason
		}
		rf.RejectedAt = sql.NullTime{Time: s.now().UTC(), Valid: true}
		if err := s.repo.Decide(ctx, tx, rf); err != nil {
			return err
		}
		out = rf
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("refund_id", out.ID.String()).Str("admin_id", adminID.String()).Msg("refund rejected")
	s.notifier.NotifyRefundProcessed(ctx, out.UserID, out.ID, false)
	return out, nil
}

// GetForUser returns the refund only to its owner.
func (s *Service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Refund, error) {
	rf, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rf.UserID != userID {
		return nil, ErrRefundNotFound
	}
	return rf, nil
}

// ListByUser returns the user's refunds, newest first
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Refund, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// List returns refunds for admins, optionally filtered by status
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Refund, error) {
	return s.repo.ListByStatus(ctx, status, limit, offset)
}
