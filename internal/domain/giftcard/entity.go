package giftcard

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents gift card lifecycle status
type Status string

const (
	StatusActive   Status = "active"
	StatusRedeemed Status = "redeemed"
	StatusExpired  Status = "expired"
	StatusDisabled Status = "disabled"
)

// GiftCard is a one-shot voucher worth CreditValue wallet credits.
type GiftCard struct {
	ID               uuid.UUID     `db:"id"`
	Code             string        `db:"code"`
	CreditValue      int64         `db:"credit_value"`
	Status           Status        `db:"status"`
	ExpiresAt        sql.NullTime  `db:"expires_at"`
	RedeemedByUserID uuid.NullUUID `db:"redeemed_by_user_id"`
	RedeemedAt       sql.NullTime  `db:"redeemed_at"`
	CreatedBy        uuid.NullUUID `db:"created_by"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// IsExpiredAt reports whether the expiry date has passed at now.
func (g *GiftCard) IsExpiredAt(now time.Time) bool {
	return g.ExpiresAt.Valid && !g.ExpiresAt.Time.After(now)
}

// RedeemableAt reports whether the card can still be redeemed at now.
func (g *GiftCard) RedeemableAt(now time.Time) bool {
	return g.Status == StatusActive && !g.IsExpiredAt(now)
}

// Redemption is the audit row written alongside every successful redeem.
type Redemption struct {
	ID            uuid.UUID `db:"id"`
	GiftCardID    uuid.UUID `db:"gift_card_id"`
	UserID        uuid.UUID `db:"user_id"`
	TransactionID uuid.UUID `db:"transaction_id"`
	IPAddress     string    `db:"ip_address"`
	UserAgent     string    `db:"user_agent"`
	RedeemedAt    time.Time `db:"redeemed_at"`
}
