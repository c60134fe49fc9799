package giftcard

import (
	"time"

	"github.com/google/uuid"
)

// RedeemRequest is the body of POST /gift-cards/redeem
type RedeemRequest struct {
	Code string `json:"code" validate:"required,giftcode"`
}

// IssueRequest is the body of the admin issue endpoint
type IssueRequest struct {
	CreditValue int64      `json:"credit_value" validate:"required,gt=0"`
	Count       int        `json:"count" validate:"omitempty,gte=1,lte=100"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ReactivateRequest optionally extends the expiry
type ReactivateRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GiftCardResponse is the admin view of a card
type GiftCardResponse struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	CreditValue      int64      `json:"credit_value"`
	Status           Status     `json:"status"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RedeemedByUserID *uuid.UUID `json:"redeemed_by_user_id,omitempty"`
	RedeemedAt       *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// GiftCardResponseFromEntity converts entity to response
func GiftCardResponseFromEntity(g *GiftCard) *GiftCardResponse {
	resp := &GiftCardResponse{
		ID:          g.ID,
		Code:        g.Code,
		CreditValue: g.CreditValue,
		Status:      g.Status,
		CreatedAt:   g.CreatedAt,
	}
	if g.ExpiresAt.Valid {
		t := g.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	if g.RedeemedByUserID.Valid {
		id := g.RedeemedByUserID.UUID
		resp.RedeemedByUserID = &id
	}
	if g.RedeemedAt.Valid {
		t := g.RedeemedAt.Time
		resp.RedeemedAt = &t
	}
	return resp
}

// RedeemResponse is returned to the redeeming user
type RedeemResponse struct {
	GiftCardID    uuid.UUID `json:"gift_card_id"`
	Credited      int64     `json:"credited"`
	Balance       int64     `json:"balance"`
	TransactionID uuid.UUID `json:"transaction_id"`
	RedeemedAt    time.Time `json:"redeemed_at"`
}
