package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditPackage is a purchasable bundle of wallet credits
type CreditPackage struct {
	ID        uuid.UUID       `db:"id"`
	Name      string          `db:"name"`
	Credits   int64           `db:"credits"`
	PriceBRL  decimal.Decimal `db:"price_brl"`
	IsActive  bool            `db:"is_active"`
	CreatedAt time.Time       `db:"created_at"`
}

// Purchase records one confirmed package payment
type Purchase struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	PackageID   uuid.UUID       `db:"package_id"`
	CouponID    uuid.NullUUID   `db:"coupon_id"`
	PaymentRef  string          `db:"payment_ref"`
	PriceBRL    decimal.Decimal `db:"price_brl"`
	DiscountBRL decimal.Decimal `db:"discount_brl"`
	Credits     int64           `db:"credits"`
	CreatedAt   time.Time       `db:"created_at"`
}

// PaidBRL is the amount charged after the discount
func (p *Purchase) PaidBRL() decimal.Decimal {
	return p.PriceBRL.Sub(p.DiscountBRL)
}
