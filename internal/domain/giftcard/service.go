package giftcard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/pkg/codegen"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
	"github.com/bingoclub/bingo-api/internal/pkg/metrics"
)

const (
	codeGroups    = 3
	codeGroupSize = 4
	codeAttempts  = 5
	maxIssueCount = 100
)

// Ledger is the wallet side of a redemption.
type Ledger interface {
	CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source ledger.Source) (*ledger.Transaction, error)
}

// Service handles gift card issuance and redemption
type Service struct {
	repo     Repository
	runner   *database.TxRunner
	ledger   Ledger
	notifier *notification.Service
	now      func() time.Time
}

// NewService creates gift card service
func NewService(repo Repository, runner *database.TxRunner, ledger Ledger, notifier *notification.Service) *Service {
	return &Service{
		repo:     repo,
		runner:   runner,
		ledger:   ledger,
		notifier: notifier,
		now:      time.Now,
	}
}

// IssueInput describes a batch of cards to generate.
type IssueInput struct {
	CreditValue int64
	ExpiresAt   *time.Time
	Count       int
}

// Issue generates Count cards with unique XXXX-XXXX-XXXX codes.
func (s *Service) Issue(ctx context.Context, adminID uuid.UUID, in IssueInput) ([]*GiftCard, error) {
	if in.CreditValue <= 0 {
		return nil, ErrInvalidCreditValue
	}
	if in.Count < 1 || in.Count > maxIssueCount {
		return nil, ErrInvalidCount
	}
	var expiresAt sql.NullTime
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(s.now()) {
			return nil, ErrInvalidExpiry
		}
		expiresAt = sql.NullTime{Time: in.ExpiresAt.UTC(), Valid: true}
	}

	cards := make([]*GiftCard, 0, in.Count)
	for i := 0; i < in.Count; i++ {
		g := &GiftCard{
			ID:          uuid.New(),
			CreditValue: in.CreditValue,
			Status:      StatusActive,
			ExpiresAt:   expiresAt,
			CreatedBy:   uuid.NullUUID{UUID: adminID, Valid: adminID != uuid.Nil},
		}
		if err := s.create(ctx, g); err != nil {
			return cards, err
		}
		cards = append(cards, g)
	}

	log.Info().
		Str("admin_id", adminID.String()).
		Int("count", len(cards)).
		Int64("credit_value", in.CreditValue).
		Msg("gift cards issued")
	return cards, nil
}

func (s *Service) create(ctx context.Context, g *GiftCard) error {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := codegen.Grouped(codeGroups, codeGroupSize)
		if err != nil {
			return fmt.Errorf("%w: generate code", ErrInternal)
		}
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		g.Code = code
		err = s.repo.Create(ctx, g)
		if errors.Is(err, errCodeTaken) {
			continue
		}
		return err
	}
	return ErrCodeSpaceExhausted
}

// RedeemInput carries the redeeming user and the request fingerprint for the audit row.
type RedeemInput struct {
	Code      string
	UserID    uuid.UUID
	IPAddress string
	UserAgent string
}

// RedeemResult is the redeemed card and the ledger entry it produced.
type RedeemResult struct {
	GiftCard    *GiftCard
	Transaction *ledger.Transaction
	Redemption  *Redemption
}

// Redeem credits the card value to the user's wallet exactly once.
// Any code that is unknown, used, disabled or past its expiry fails with ErrNotRedeemable.
func (s *Service) Redeem(ctx context.Context, in RedeemInput) (res *RedeemResult, err error) {
	defer func() { metrics.RecordRedemption(err) }()

	code := codegen.Normalize(in.Code)
	g, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, ErrGiftCardNotFound) {
		return nil, fmt.Errorf("%w: unknown code", ErrNotRedeemable)
	}
	if err != nil {
		return nil, err
	}
	if !g.RedeemableAt(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotRedeemable, g.Status)
	}

	res = &RedeemResult{}
	err = s.runner.Run(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.repo.LockByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		now := s.now()
		// state may have changed between the lookup and the lock
		if !locked.RedeemableAt(now) {
			return fmt.Errorf("%w: %s", ErrNotRedeemable, locked.Status)
		}

		t, err := s.ledger.CreditTx(ctx, tx, in.UserID, locked.CreditValue, "Gift card "+locked.Code, ledger.FromGiftCard(locked.ID))
		if err != nil {
			return err
		}
		if err := s.repo.MarkRedeemed(ctx, tx, locked.ID, in.UserID, now); err != nil {
			return err
		}

		rd := &Redemption{
			ID:            uuid.New(),
			GiftCardID:    locked.ID,
			UserID:        in.UserID,
			TransactionID: t.ID,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
		}
		if err := s.repo.InsertRedemption(ctx, tx, rd); err != nil {
			return err
		}

		locked.Status = StatusRedeemed
		locked.RedeemedByUserID = uuid.NullUUID{UUID: in.UserID, Valid: true}
		locked.RedeemedAt = sql.NullTime{Time: now, Valid: true}
		res.GiftCard, res.Transaction, res.Redemption = locked, t, rd
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotRedeemable) {
			log.Warn().Str("user_id", in.UserID.String()).Str("ip", in.IPAddress).Err(err).Msg("gift card redeem rejected")
		}
		return nil, err
	}

	log.Info().
		Str("user_id", in.UserID.String()).
		Str("gift_card_id", res.GiftCard.ID.String()).
		Int64("amount", res.GiftCard.CreditValue).
		Int64("balance_after", res.Transaction.BalanceAfter).
		Msg("gift card redeemed")
	s.notifier.NotifyWalletCredited(ctx, in.UserID, notification.TypeGiftCardRedeemed, res.GiftCard.CreditValue, res.Transaction.BalanceAfter)
	return res, nil
}

// Disable withdraws an active card.
func (s *Service) Disable(ctx context.Context, id uuid.UUID) (*GiftCard, error) {
	return s.changeStatus(ctx, id, func(g *GiftCard) error {
		if g.Status != StatusActive {
			return ErrCannotDisable
		}
		g.Status = StatusDisabled
		return nil
	})
}

// Reactivate is the admin override for disabled or expired cards. When the
// stored expiry already passed a new one must be supplied.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID, expiresAt *time.Time) (*GiftCard, error) {
	now := s.now()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, ErrInvalidExpiry
	}
	return s.changeStatus(ctx, id, func(g *GiftCard) error {
		if g.Status != StatusDisabled && g.Status != StatusExpired {
			return ErrCannotReactivate
		}
		if expiresAt != nil {
			g.ExpiresAt = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
		} else if g.IsExpiredAt(now) {
			return ErrInvalidExpiry
		}
		g.Status = StatusActive
		return nil
	})
}

func (s *Service) changeStatus(ctx context.Context, id uuid.UUID, mutate func(*GiftCard) error) (*GiftCard, error) {
	var out *GiftCard
	err := s.runner.Run(ctx, func(tx *sqlx.Tx) error {
		g, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(g); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, g.ID, g.Status, g.ExpiresAt); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("gift_card_id", id.String()).Str("status", string(out.Status)).Msg("gift card status changed")
	return out, nil
}

// ExpireOverdue marks active cards past their expiry as expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("gift cards expired")
	}
	return n, nil
}

// GetByID returns a card for the admin view.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*GiftCard, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns cards newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*GiftCard, error) {
	return s.repo.List(ctx, status, limit, offset)
}
