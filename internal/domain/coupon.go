package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrCouponExpired   = errors.New("coupon expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrCouponMinOrder  = errors.New("order below coupon minimum")
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type Coupon struct {
	ID            int64        `json:"id"`
	VendorID      int64        `json:"vendor_id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	MinOrder      float64      `json:"min_order,omitempty"`
	MaxUses       int          `json:"max_uses,omitempty"` // 0 = unlimited
	UsedCount     int          `json:"used_count"`
	ValidFrom     *time.Time   `json:"valid_from,omitempty"`
	ValidTo       *time.Time   `json:"valid_to,omitempty"`
}

func (c Coupon) EntityID() int64 { return c.ID }

func (c Coupon) Active(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return false
	}
	return true
}

// Discount computes the amount taken off an order of the given size.
func (c Coupon) Discount(amount float64, now time.Time) (float64, error) {
	if !c.Active(now) {
		return 0, ErrCouponExpired
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return 0, ErrCouponExhausted
	}
	if amount < c.MinOrder {
		return 0, ErrCouponMinOrder
	}
	var d float64
	switch DiscountType(strings.ToLower(string(c.DiscountType))) {
	case DiscountPercent:
		d = amount * c.DiscountValue / 100
	default:
		d = c.DiscountValue
	}
	if d > amount {
		d = amount
	}
	return round2(d), nil
}
