// Package payments reads checkout results back from the payment provider.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"staybook/internal/domain"
)

var ErrNoBooking = errors.New("payments: charge has no booking_id metadata")

// Provider retrieves charges from Omise.
type Provider struct {
	omc *omise.Client
}

var _ domain.PaymentProvider = (*Provider)(nil)

func New(publicKey, secretKey string) (*Provider, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	c.SetDebug(false)
	return &Provider{omc: c}, nil
}

// RetrieveCharge fetches the charge for a checkout session. The SDK call is
// not context aware, so cancellation only abandons the wait.
func (p *Provider) RetrieveCharge(ctx context.Context, id string) (domain.Charge, error) {
	type result struct {
		ch  *omise.Charge
		err error
	}
	done := make(chan result, 1)
	go func() {
		ch := &omise.Charge{}
		err := p.omc.Do(ch, &operations.RetrieveCharge{ChargeID: id})
		done <- result{ch, err}
	}()

	select {
	case <-ctx.Done():
		return domain.Charge{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			var oe *omise.Error
			if errors.As(r.err, &oe) && oe.StatusCode == 404 {
				return domain.Charge{}, fmt.Errorf("charge %s: %w", id, domain.ErrNotFound)
			}
			return domain.Charge{}, fmt.Errorf("retrieve charge %s: %w", id, r.err)
		}
		return toCharge(r.ch)
	}
}

func toCharge(ch *omise.Charge) (domain.Charge, error) {
	out := domain.Charge{
		ID:       ch.ID,
		Amount:   ch.Amount,
		Currency: ch.Currency,
		Status:   string(ch.Status),
		Paid:     ch.Paid,
	}
	id, err := bookingID(ch.Metadata)
	if err != nil {
		return out, fmt.Errorf("charge %s: %w", ch.ID, err)
	}
	out.BookingID = id
	return out, nil
}

// bookingID reads metadata.booking_id, which arrives as a string or a JSON number.
func bookingID(md map[string]interface{}) (int64, error) {
	switch v := md["booking_id"].(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoBooking, v)
		}
		return id, nil
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	}
	return 0, ErrNoBooking
}
