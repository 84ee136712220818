package domain

import (
	"math"
	"time"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Totals struct {
	Nights     int     `json:"nights"`
	Subtotal   float64 `json:"subtotal"`
	Cleaning   float64 `json:"cleaning"`
	ServiceFee float64 `json:"service_fee"`
	Discount   float64 `json:"discount,omitempty"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency,omitempty"`
}

type Booking struct {
	ID            int64         `json:"id"`
	PropertyID    int64         `json:"property_id"`
	GuestID       int64         `json:"guest_id"`
	CheckIn       time.Time     `json:"check_in"`
	CheckOut      time.Time     `json:"check_out"`
	Adults        int           `json:"adults"`
	Children      int           `json:"children,omitempty"`
	Infants       int           `json:"infants,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Totals        Totals        `json:"totals"`
	Property      *Property     `json:"property,omitempty"`
}

func (b Booking) EntityID() int64 { return b.ID }

// Nights counts whole calendar days between check-in and check-out.
func (b Booking) Nights() int { return Nights(b.CheckIn, b.CheckOut) }

func (b Booking) Guests() int { return b.Adults + b.Children }

func Nights(in, out time.Time) int {
	a := time.Date(in.Year(), in.Month(), in.Day(), 0, 0, 0, 0, time.UTC)
	z := time.Date(out.Year(), out.Month(), out.Day(), 0, 0, 0, 0, time.UTC)
	n := int(z.Sub(a).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// ComputeTotals prices a stay: nightly*nights + cleaning + service fee on the subtotal.
func ComputeTotals(p Pricing, nights int) Totals {
	sub := round2(p.Nightly * float64(nights))
	fee := round2(sub * p.ServiceFeePct / 100)
	return Totals{
		Nights:     nights,
		Subtotal:   sub,
		Cleaning:   p.CleaningFee,
		ServiceFee: fee,
		Total:      round2(sub + p.CleaningFee + fee),
		Currency:   p.Currency,
	}
}

// WithDiscount returns t with d subtracted from the total, never below zero.
func (t Totals) WithDiscount(d float64) Totals {
	if d > t.Total {
		d = t.Total
	}
	t.Discount = round2(d)
	t.Total = round2(t.Total - d)
	return t
}

type BookingRequest struct {
	PropertyID int64     `json:"property_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Adults     int       `json:"adults"`
	Children   int       `json:"children,omitempty"`
	Infants    int       `json:"infants,omitempty"`
	GuestName  string    `json:"guest_name"`
	GuestEmail string    `json:"guest_email"`
	GuestPhone string    `json:"guest_phone,omitempty"`
	Message    string    `json:"message,omitempty"`
	CouponCode string    `json:"coupon_code,omitempty"`
	// ExperienceID books the stay as part of a curated experience, whose
	// minimum-nights rule then applies.
	ExperienceID int64 `json:"experience_id,omitempty"`
	// IdempotencyKey de-duplicates retried submissions upstream.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PaymentPayload is the normalized provider result relayed to the booking service.
type PaymentPayload struct {
	BookingID int64  `json:"booking_id"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Paid      bool   `json:"paid"`
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
