package refund

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRefundRequest is the body of POST /refunds
type CreateRefundRequest struct {
	Credits   int64           `json:"credits" validate:"required,gt=0"`
	AmountBRL decimal.Decimal `json:"amount_brl"`
	Reason    string          `json:"reason" validate:"max=500"`
}

// RejectRequest is the body of the admin reject endpoint
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RefundResponse represents a refund in API responses
type RefundResponse struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Credits    int64      `json:"credits"`
	AmountBRL  string     `json:"amount_brl"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	ApprovedBy *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RefundResponseFromEntity converts entity to response
func RefundResponseFromEntity(rf *Refund) *RefundResponse {
	resp := &RefundResponse{
		ID:        rf.ID,
		UserID:    rf.UserID,
		Credits:   rf.Credits,
		AmountBRL: rf.AmountBRL.StringFixed(2),
		Status:    rf.Status,
		Reason:    rf.Reason,
		CreatedAt: rf.CreatedAt,
	}
	if rf.ApprovedBy.Valid {
		id := rf.ApprovedBy.UUID
		resp.ApprovedBy = &id
	}
	if rf.ApprovedAt.Valid {
		t := rf.ApprovedAt.Time
		resp.ApprovedAt = &t
	}
	if rf.RejectedAt.Valid {
		t := rf.RejectedAt.Time
		resp.RejectedAt = &t
	}
	return resp
}

func responses(refunds []*Refund) []*RefundResponse {
	items := make([]*RefundResponse, len(refunds))
	for i, rf := range refunds {
		items[i] = RefundResponseFromEntity(rf)
	}
	return items
}
