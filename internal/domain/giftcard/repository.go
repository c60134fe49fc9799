package giftcard

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

const constraintCode = "gift_cards_code_key"

var errCodeTaken = errors.New("gift card code taken")

const cardColumns = `id, code, credit_value, status, expires_at, redeemed_by_user_id, redeemed_at, created_by, created_at, updated_at`

// Repository defines gift card data access. Methods taking a tx run inside
// the caller's transaction; the rest use the pool.
type Repository interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, g *GiftCard) error
	GetByID(ctx context.Context, id uuid.UUID) (*GiftCard, error)
	GetByCode(ctx context.Context, code string) (*GiftCard, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*GiftCard, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	LockByCode(ctx context.Context, tx *sqlx.Tx, code string) (*GiftCard, error)
	LockByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*GiftCard, error)
	MarkRedeemed(ctx context.Context, tx *sqlx.Tx, id, userID uuid.UUID, at time.Time) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, expiresAt sql.NullTime) error
	InsertRedemption(ctx context.Context, tx *sqlx.Tx, r *Redemption) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates gift card repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM gift_cards WHERE code = $1)`, code); err != nil {
		return false, fmt.Errorf("%w: check code", ErrInternal)
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, g *GiftCard) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO gift_cards (id, code, credit_value, status, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, g.ID, g.Code, g.CreditValue, string(g.Status), g.ExpiresAt, g.CreatedBy).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if database.UniqueConstraint(err) == constraintCode {
			return errCodeTaken
		}
		return fmt.Errorf("%w: insert gift card", ErrInternal)
	}
	return nil
}

func (r *repository) get(ctx context.Context, q sqlx.QueryerContext, query string, arg interface{}) (*GiftCard, error) {
	var g GiftCard
	err := sqlx.GetContext(ctx, q, &g, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGiftCardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*GiftCard, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	g, err := r.get(ctx, r.db, `SELECT `+cardColumns+` FROM gift_cards WHERE id = $1`, id)
	if err != nil && !errors.Is(err, ErrGiftCardNotFound) {
		return nil, fmt.Errorf("%w: get gift card", ErrInternal)
	}
	return g, err
}

func (r *repository) GetByCode(ctx context.Context, code string) (*GiftCard, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	g, err := r.get(ctx, r.db, `SELECT `+cardColumns+` FROM gift_cards WHERE code = $1`, code)
	if err != nil && !errors.Is(err, ErrGiftCardNotFound) {
		return nil, fmt.Errorf("%w: get gift card", ErrInternal)
	}
	return g, err
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]*GiftCard, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cards := []*GiftCard{}
	err := r.db.SelectContext(ctx, &cards, `
		SELECT `+cardColumns+`
		FROM gift_cards
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list gift cards", ErrInternal)
	}
	return cards, nil
}

// ExpireOverdue flips every active card whose expiry has passed.
func (r *repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE gift_cards
		SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: expire gift cards", ErrInternal)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *repository) LockByCode(ctx context.Context, tx *sqlx.Tx, code string) (*GiftCard, error) {
	g, err := r.get(ctx, tx, `SELECT `+cardColumns+` FROM gift_cards WHERE code = $1 FOR UPDATE`, code)
	if err != nil && !errors.Is(err, ErrGiftCardNotFound) {
		return nil, fmt.Errorf("lock gift card: %w", err)
	}
	return g, err
}

func (r *repository) LockByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*GiftCard, error) {
	g, err := r.get(ctx, tx, `SELECT `+cardColumns+` FROM gift_cards WHERE id = $1 FOR UPDATE`, id)
	if err != nil && !errors.Is(err, ErrGiftCardNotFound) {
		return nil, fmt.Errorf("lock gift card: %w", err)
	}
	return g, err
}

func (r *repository) MarkRedeemed(ctx context.Context, tx *sqlx.Tx, id, userID uuid.UUID, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE gift_cards
		SET status = 'redeemed', redeemed_by_user_id = $1, redeemed_at = $2, updated_at = now()
		WHERE id = $3
	`, userID, at, id)
	if err != nil {
		return fmt.Errorf("mark redeemed: %w", err)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, expiresAt sql.NullTime) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE gift_cards
		SET status = $1, expires_at = $2, updated_at = now()
		WHERE id = $3
	`, string(status), expiresAt, id)
	if err != nil {
		return fmt.Errorf("update gift card status: %w", err)
	}
	return nil
}

func (r *repository) InsertRedemption(ctx context.Context, tx *sqlx.Tx, rd *Redemption) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO gift_card_redemptions (id, gift_card_id, user_id, transaction_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING redeemed_at
	`, rd.ID, rd.GiftCardID, rd.UserID, rd.TransactionID, rd.IPAddress, rd.UserAgent).Scan(&rd.RedeemedAt)
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}
