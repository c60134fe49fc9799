package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bingoclub/bingo-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const constraintPaymentRef = "package_purchases_payment_ref_key"

const (
	packageColumns  = `id, name, credits, price_brl, is_active, created_at`
	purchaseColumns = `id, user_id, package_id, coupon_id, payment_ref, price_brl, discount_brl, credits, created_at`
)

// Repository defines credit package data access
type Repository interface {
	CreatePackage(ctx context.Context, p *CreditPackage) error
	GetPackage(ctx context.Context, id uuid.UUID) (*CreditPackage, error)
	ListActive(ctx context.Context) ([]*CreditPackage, error)
	ListPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Purchase, error)

	InsertPurchase(ctx context.Context, tx *sqlx.Tx, p *Purchase) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreatePackage(ctx context.Context, p *CreditPackage) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO credit_packages (id, name, credits, price_brl, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.Name, p.Credits, p.PriceBRL, p.IsActive).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert package", ErrInternal)
	}
	return nil
}

func (r *repository) GetPackage(ctx context.Context, id uuid.UUID) (*CreditPackage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p CreditPackage
	err := r.db.GetContext(ctx, &p, `SELECT `+packageColumns+` FROM credit_packages WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get package", ErrInternal)
	}
	return &p, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*CreditPackage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	packages := []*CreditPackage{}
	err := r.db.SelectContext(ctx, &packages, `
		SELECT `+packageColumns+`
		FROM credit_packages
		WHERE is_active = TRUE
		ORDER BY price_brl ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list packages", ErrInternal)
	}
	return packages, nil
}

func (r *repository) ListPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	purchases := []*Purchase{}
	err := r.db.SelectContext(ctx, &purchases, `
		SELECT `+purchaseColumns+`
		FROM package_purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list purchases", ErrInternal)
	}
	return purchases, nil
}

func (r *repository) InsertPurchase(ctx context.Context, tx *sqlx.Tx, p *Purchase) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO package_purchases (id, user_id, package_id, coupon_id, payment_ref, price_brl, discount_brl, credits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, p.ID, p.UserID, p.PackageID, p.CouponID, p.PaymentRef, p.PriceBRL, p.DiscountBRL, p.Credits).Scan(&p.CreatedAt)
	if err != nil {
		if database.UniqueConstraint(err) == constraintPaymentRef {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}
