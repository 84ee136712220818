package app_test

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/app"
	"staybook/internal/domain"
)

type fakeProvider struct {
	charge domain.Charge
	calls  int
}

func (p *fakeProvider) RetrieveCharge(ctx context.Context, id string) (domain.Charge, error) {
	p.calls++
	if id != p.charge.ID {
		return domain.Charge{}, domain.ErrNotFound
	}
	return p.charge, nil
}

func TestPaymentConfirm_RelaysOnce(t *testing.T) {
	h := newHarness()
	prov := &fakeProvider{charge: domain.Charge{ID: "chrg_1", BookingID: 12, Amount: 135000, Currency: "thb", Status: "successful", Paid: true}}
	svc := app.NewPaymentService(prov, h.market, h.ledger, h.inv)
	ctx := context.Background()

	rec, err := svc.Confirm(ctx, 12, "chrg_1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !rec.Paid || rec.Amount != 135000 || rec.ConfirmedAt.IsZero() {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(h.market.payments) != 1 || h.market.payments[0].SessionID != "chrg_1" {
		t.Fatalf("payment not relayed: %+v", h.market.payments)
	}

	again, err := svc.Confirm(ctx, 12, "chrg_1")
	if err != nil || again.SessionID != "chrg_1" {
		t.Fatalf("second confirm: %+v %v", again, err)
	}
	if len(h.market.payments) != 1 || prov.calls != 1 {
		t.Fatalf("second confirmation must not relay again: relays=%d provider=%d", len(h.market.payments), prov.calls)
	}
}

func TestPaymentConfirm_BookingMismatch(t *testing.T) {
	h := newHarness()
	prov := &fakeProvider{charge: domain.Charge{ID: "chrg_2", BookingID: 99, Paid: true}}
	svc := app.NewPaymentService(prov, h.market, h.ledger, h.inv)

	if _, err := svc.Confirm(context.Background(), 12, "chrg_2"); !errors.Is(err, app.ErrPaymentMismatch) {
		t.Fatalf("want ErrPaymentMismatch, got %v", err)
	}
	if len(h.market.payments) != 0 {
		t.Fatalf("nothing should be relayed")
	}
}
