package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRequest is the body of POST /packages/{id}/purchase
type PurchaseRequest struct {
	CouponCode string `json:"coupon_code" validate:"omitempty,max=32"`
	PaymentRef string `json:"payment_ref" validate:"required,max=128"`
}

// CreatePackageRequest is the body of the admin create endpoint
type CreatePackageRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Credits  int64           `json:"credits" validate:"required,gt=0"`
	PriceBRL decimal.Decimal `json:"price_brl"`
}

// PackageResponse represents a credit package
type PackageResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Credits  int64     `json:"credits"`
	PriceBRL string    `json:"price_brl"`
}

// PackageResponseFromEntity converts entity to response
func PackageResponseFromEntity(p *CreditPackage) *PackageResponse {
	return &PackageResponse{
		ID:       p.ID,
		Name:     p.Name,
		Credits:  p.Credits,
		PriceBRL: p.PriceBRL.StringFixed(2),
	}
}

// PurchaseResponse represents a completed purchase
type PurchaseResponse struct {
	ID          uuid.UUID  `json:"id"`
	PackageID   uuid.UUID  `json:"package_id"`
	CouponID    *uuid.UUID `json:"coupon_id,omitempty"`
	PaymentRef  string     `json:"payment_ref"`
	PriceBRL    string     `json:"price_brl"`
	DiscountBRL string     `json:"discount_brl"`
	PaidBRL     string     `json:"paid_brl"`
	Credits     int64      `json:"credits"`
	Balance     *int64     `json:"balance,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PurchaseResponseFromEntity converts entity to response
func PurchaseResponseFromEntity(p *Purchase) *PurchaseResponse {
	resp := &PurchaseResponse{
		ID:          p.ID,
		PackageID:   p.PackageID,
		PaymentRef:  p.PaymentRef,
		PriceBRL:    p.PriceBRL.StringFixed(2),
		DiscountBRL: p.DiscountBRL.StringFixed(2),
		PaidBRL:     p.PaidBRL().StringFixed(2),
		Credits:     p.Credits,
		CreatedAt:   p.CreatedAt,
	}
	if p.CouponID.Valid {
		id := p.CouponID.UUID
		resp.CouponID = &id
	}
	return resp
}
