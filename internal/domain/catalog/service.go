package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bingoclub/bingo-api/internal/domain/coupon"
	"github.com/bingoclub/bingo-api/internal/domain/ledger"
	"github.com/bingoclub/bingo-api/internal/domain/notification"
	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

// Ledger credits purchased packages.
type Ledger interface {
	CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, description string, source ledger.Source) (*ledger.Transaction, error)
}

// Coupons applies discount codes within the purchase transaction.
type Coupons interface {
	ApplyTx(ctx context.Context, tx *sqlx.Tx, code string, userID uuid.UUID, orderValue decimal.Decimal, orderRef string) (*coupon.Quote, error)
}

// Service handles credit package purchases
type Service struct {
	repo     Repository
	runner   *database.TxRunner
	ledger   Ledger
	coupons  Coupons
	notifier *notification.Service
}

// NewService creates catalog service
func NewService(repo Repository, runner *database.TxRunner, ledger Ledger, coupons Coupons, notifier *notification.Service) *Service {
	return &Service{repo: repo, runner: runner, ledger: ledger, coupons: coupons, notifier: notifier}
}

// CreatePackageInput describes a new package (admin)
type CreatePackageInput struct {
	Name     string
	Credits  int64
	PriceBRL decimal.Decimal
}

// CreatePackage adds a package to the catalog
func (s *Service) CreatePackage(ctx context.Context, in CreatePackageInput) (*CreditPackage, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Credits <= 0 || in.PriceBRL.IsNegative() {
		return nil, ErrInvalidPackageData
	}

	p := &CreditPackage{
		ID:       uuid.New(),
		Name:     name,
		Credits:  in.Credits,
		PriceBRL: in.PriceBRL.Round(2),
		IsActive: true,
	}
	if err := s.repo.CreatePackage(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("package_id", p.ID.String()).Int64("credits", p.Credits).Str("price_brl", p.PriceBRL.StringFixed(2)).Msg("credit package created")
	return p, nil
}

// ListPackages returns active packages, cheapest first
func (s *Service) ListPackages(ctx context.Context) ([]*CreditPackage, error) {
	return s.repo.ListActive(ctx)
}

// PurchaseInput is a purchase whose payment was already confirmed upstream.
type PurchaseInput struct {
	UserID     uuid.UUID
	PackageID  uuid.UUID
	CouponCode string
	PaymentRef string
}

// PurchaseResult is the stored purchase and the ledger credit it produced.
type PurchaseResult struct {
	Purchase    *Purchase
	Package     *CreditPackage
	Transaction *ledger.Transaction
}

// Purchase applies the optional coupon, records the purchase and credits the
// package in one transaction. Replaying a payment_ref fails with ErrAlreadyProcessed.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	paymentRef := strings.TrimSpace(in.PaymentRef)
	if paymentRef == "" {
		return nil, ErrInvalidPaymentRef
	}

	pkg, err := s.repo.GetPackage(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	p := &Purchase{
		ID:          uuid.New(),
		UserID:      in.UserID,
		PackageID:   pkg.ID,
		PaymentRef:  paymentRef,
		PriceBRL:    pkg.PriceBRL,
		DiscountBRL: decimal.Zero,
		Credits:     pkg.Credits,
	}

	res := &PurchaseResult{Purchase: p, Package: pkg}
	err = s.runner.Run(ctx, func(tx *sqlx.Tx) error {
		if code := strings.TrimSpace(in.CouponCode); code != "" {
			q, err := s.coupons.ApplyTx(ctx, tx, code, in.UserID, pkg.PriceBRL, paymentRef)
			if err != nil {
				return err
			}
			p.CouponID = uuid.NullUUID{UUID: q.Coupon.ID, Valid: true}
			p.DiscountBRL = q.Discount
		}

		if err := s.repo.InsertPurchase(ctx, tx, p); err != nil {
			return err
		}

		t, err := s.ledger.CreditTx(ctx, tx, in.UserID, pkg.Credits, "Package "+pkg.Name, ledger.FromPackage(p.ID))
		if err != nil {
			return err
		}
		res.Transaction = t
		return nil
	})
	if errors.Is(err, coupon.ErrAlreadyProcessed) {
		err = ErrAlreadyProcessed
	}
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			log.Warn().Str("user_id", in.UserID.String()).Str("payment_ref", paymentRef).Msg("duplicate package purchase")
		}
		return nil, err
	}

	log.Info().
		Str("user_id", in.UserID.String()).
		Str("purchase_id", p.ID.String()).
		Int64("credits", p.Credits).
		Str("paid_brl", p.PaidBRL().StringFixed(2)).
		Int64("balance_after", res.Transaction.BalanceAfter).
		Msg("credit package purchased")
	s.notifier.NotifyWalletCredited(ctx, in.UserID, notification.TypeWalletCredited, p.Credits, res.Transaction.BalanceAfter)
	return res, nil
}

// ListPurchases returns the user's purchase history, newest first
func (s *Service) ListPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Purchase, error) {
	return s.repo.ListPurchases(ctx, userID, limit, offset)
}
