package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

var ErrPaymentMismatch = errors.New("app: charge belongs to another booking")

// PaymentService relays provider checkout results to the booking service.
type PaymentService struct {
	provider domain.PaymentProvider
	bookings domain.BookingAPI
	ledger   domain.LedgerRepository
	inv      *Invalidator
	now      func() time.Time
}

func NewPaymentService(p domain.PaymentProvider, b domain.BookingAPI, l domain.LedgerRepository, inv *Invalidator) *PaymentService {
	return &PaymentService{provider: p, bookings: b, ledger: l, inv: inv, now: time.Now}
}

// Confirm is idempotent per checkout session: a session already in the
// ledger returns the recorded result without relaying it again.
func (s *PaymentService) Confirm(ctx context.Context, bookingID int64, sessionID string) (domain.PaymentRecord, error) {
	rec, err := s.ledger.GetPayment(ctx, sessionID)
	switch {
	case err == nil:
		if bookingID != 0 && rec.BookingID != bookingID {
			return domain.PaymentRecord{}, ErrPaymentMismatch
		}
		log.Debug().Str("session_id", sessionID).Msg("payment already confirmed")
		return rec, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.PaymentRecord{}, fmt.Errorf("payment ledger: %w", err)
	}

	ch, err := s.provider.RetrieveCharge(ctx, sessionID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if bookingID != 0 && ch.BookingID != bookingID {
		return domain.PaymentRecord{}, ErrPaymentMismatch
	}

	payload := domain.PaymentPayload{
		BookingID: ch.BookingID,
		SessionID: sessionID,
		Amount:    ch.Amount,
		Currency:  ch.Currency,
		Status:    ch.Status,
		Paid:      ch.Paid,
	}
	if _, err := s.bookings.RecordPayment(ctx, payload); err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("relay payment: %w", err)
	}

	rec = domain.PaymentRecord{
		SessionID:   sessionID,
		BookingID:   payload.BookingID,
		Amount:      payload.Amount,
		Currency:    payload.Currency,
		Status:      payload.Status,
		Paid:        payload.Paid,
		ConfirmedAt: s.now().UTC(),
	}
	if err := s.ledger.SavePayment(ctx, rec); err != nil {
		return rec, fmt.Errorf("record payment: %w", err)
	}
	s.inv.Invalidate(ctx, querycache.BookingsTag(userScope(ctx).subject))
	return rec, nil
}
