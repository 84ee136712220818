package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"staybook/internal/app"
	"staybook/internal/auth"
	"staybook/internal/domain"
)

func sessionFor(t *testing.T, subject string) context.Context {
	t.Helper()
	return sessionSignedWith(t, subject, "k")
}

func sessionSignedWith(t *testing.T, subject, key string) context.Context {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).SignedString([]byte(key))
	if err != nil {
		t.Fatal(err)
	}
	s := auth.NewSession(auth.NewMemoryStore(domain.Credentials{Access: tok}), nil)
	return auth.NewContext(context.Background(), s)
}

func TestBookingsMine_ScopedPerUser(t *testing.T) {
	h := newHarness()
	alice, bob := sessionFor(t, "alice"), sessionFor(t, "bob")

	for _, ctx := range []context.Context{alice, alice, bob} {
		if _, err := h.bookings.Mine(ctx, 1); err != nil {
			t.Fatal(err)
		}
	}
	if h.market.mineCalls != 2 {
		t.Fatalf("want one upstream call per user, got %d", h.market.mineCalls)
	}

	_, err := h.bookings.Create(alice, domain.BookingRequest{
		PropertyID: 1,
		CheckIn:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		Adults:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.market.bookings[0].IdempotencyKey == "" {
		t.Fatalf("idempotency key should be generated")
	}

	_, _ = h.bookings.Mine(alice, 1)
	_, _ = h.bookings.Mine(bob, 1)
	if h.market.mineCalls != 3 {
		t.Fatalf("only alice's list should be refetched, calls=%d", h.market.mineCalls)
	}
}

func TestBookingsMine_ForgedSubjectNotServedFromCache(t *testing.T) {
	h := newHarness()
	alice := sessionFor(t, "alice")
	forged := sessionSignedWith(t, "alice", "attacker")

	if _, err := h.bookings.Mine(alice, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := h.bookings.Mine(forged, 1); err != nil {
		t.Fatal(err)
	}
	if h.market.mineCalls != 2 {
		t.Fatalf("a token claiming alice must reach upstream, calls=%d", h.market.mineCalls)
	}

	// alice's own mutation still reaches entries cached under any of her tokens
	if _, err := h.bookings.Create(alice, domain.BookingRequest{
		PropertyID: 1,
		CheckIn:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		Adults:     1,
	}); err != nil {
		t.Fatal(err)
	}
	_, _ = h.bookings.Mine(alice, 1)
	if h.market.mineCalls != 3 {
		t.Fatalf("create should invalidate alice's list, calls=%d", h.market.mineCalls)
	}
}

func TestVendorCoupons_ForgedSubjectNotServedFromCache(t *testing.T) {
	h := newHarness()
	if _, err := h.vendors.Coupons(sessionFor(t, "vendor-7")); err != nil {
		t.Fatal(err)
	}
	if _, err := h.vendors.Coupons(sessionSignedWith(t, "vendor-7", "attacker")); err != nil {
		t.Fatal(err)
	}
	if h.market.couponsCalls != 2 {
		t.Fatalf("forged token must not read the cached list, calls=%d", h.market.couponsCalls)
	}
}

func TestBookingQuote(t *testing.T) {
	h := newHarness()
	h.market.props[5] = domain.Property{ID: 5, Pricing: domain.Pricing{Nightly: 100, CleaningFee: 20, ServiceFeePct: 10}, Capacity: domain.Capacity{Guests: 2}}
	req := domain.BookingRequest{
		PropertyID: 5,
		CheckIn:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Adults:     2,
	}
	tot, err := h.bookings.Quote(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if tot.Nights != 3 || tot.Subtotal != 300 || tot.ServiceFee != 30 || tot.Total != 350 {
		t.Fatalf("unexpected totals %+v", tot)
	}

	req.Children = 1
	if _, err := h.bookings.Quote(context.Background(), req); !errors.Is(err, app.ErrTooManyGuests) {
		t.Fatalf("want ErrTooManyGuests, got %v", err)
	}
	req.CheckOut = req.CheckIn
	if _, err := h.bookings.Create(context.Background(), req); !errors.Is(err, app.ErrInvalidStay) {
		t.Fatalf("want ErrInvalidStay, got %v", err)
	}
}

func TestBookingQuote_CouponTakenOffSubtotal(t *testing.T) {
	h := newHarness()
	h.market.props[5] = domain.Property{ID: 5, Pricing: domain.Pricing{Nightly: 100, CleaningFee: 20, ServiceFeePct: 10}}
	past := time.Now().AddDate(0, 0, -1)
	h.market.coupons["EID25"] = domain.Coupon{Code: "EID25", DiscountType: domain.DiscountPercent, DiscountValue: 25}
	h.market.coupons["OLD"] = domain.Coupon{Code: "OLD", DiscountType: domain.DiscountFixed, DiscountValue: 10, ValidTo: &past}
	h.market.coupons["BIG"] = domain.Coupon{Code: "BIG", DiscountType: domain.DiscountFixed, DiscountValue: 10, MinOrder: 1000}
	ctx := context.Background()
	req := domain.BookingRequest{
		PropertyID: 5,
		CheckIn:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Adults:     1,
		CouponCode: " eid25 ",
	}

	tot, err := h.bookings.Quote(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if tot.Discount != 75 || tot.Total != 275 {
		t.Fatalf("want 25%% of the 300 subtotal off 350, got %+v", tot)
	}

	for code, want := range map[string]error{
		"OLD":  domain.ErrCouponExpired,
		"BIG":  domain.ErrCouponMinOrder,
		"NOPE": domain.ErrNotFound,
	} {
		req.CouponCode = code
		if _, err := h.bookings.Quote(ctx, req); !errors.Is(err, want) {
			t.Fatalf("%s: want %v, got %v", code, want, err)
		}
	}

	req.CouponCode = "OLD"
	if _, err := h.bookings.Create(ctx, req); !errors.Is(err, domain.ErrCouponExpired) {
		t.Fatalf("create with an expired coupon: %v", err)
	}
	if len(h.market.bookings) != 0 {
		t.Fatalf("nothing may be booked with a rejected coupon")
	}
}

func TestBookingQuote_ExperienceMinimumNights(t *testing.T) {
	h := newHarness()
	h.market.props[5] = domain.Property{ID: 5, Pricing: domain.Pricing{Nightly: 100}}
	h.market.experiences[3] = domain.Experience{ID: 3, Title: "Desert Week", MinNights: 5}
	ctx := context.Background()
	req := domain.BookingRequest{
		PropertyID:   5,
		CheckIn:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:     time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Adults:       2,
		ExperienceID: 3,
	}

	if _, err := h.bookings.Create(ctx, req); !errors.Is(err, app.ErrStayTooShort) {
		t.Fatalf("want ErrStayTooShort, got %v", err)
	}
	req.CheckOut = time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)
	if _, err := h.bookings.Create(ctx, req); err != nil {
		t.Fatalf("five nights satisfy the experience: %v", err)
	}
	if len(h.market.bookings) != 1 || h.market.bookings[0].ExperienceID != 3 {
		t.Fatalf("unexpected upstream bookings %+v", h.market.bookings)
	}
}

func TestExperiences_ListCached(t *testing.T) {
	h := newHarness()
	h.market.experiences[3] = domain.Experience{ID: 3, Title: "Desert Week", MinNights: 5}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := h.exps.List(ctx, 1)
		if err != nil || len(res.Items) != 1 {
			t.Fatalf("list: %+v %v", res, err)
		}
	}
	if h.market.expCalls != 1 {
		t.Fatalf("experience list should be cached, calls=%d", h.market.expCalls)
	}
}

func TestVendorCoupons_CachedUntilMutation(t *testing.T) {
	h := newHarness()
	ctx := sessionFor(t, "vendor-7")

	for i := 0; i < 2; i++ {
		if _, err := h.vendors.Coupons(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if h.market.couponsCalls != 1 {
		t.Fatalf("coupons should be cached, calls=%d", h.market.couponsCalls)
	}
	c, err := h.vendors.CreateCoupon(ctx, domain.Coupon{Code: " ramadan10 "})
	if err != nil || c.Code != "RAMADAN10" {
		t.Fatalf("create: %+v %v", c, err)
	}
	if _, err := h.vendors.FindCoupon(ctx, "eid25"); err != nil {
		t.Fatalf("find: %v", err)
	}
	if h.market.couponsCalls != 2 {
		t.Fatalf("create should invalidate the list, calls=%d", h.market.couponsCalls)
	}
}
