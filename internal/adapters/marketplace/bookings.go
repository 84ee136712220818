package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"staybook/internal/domain"
)

func (a *API) CreateBooking(ctx context.Context, in domain.BookingRequest) (domain.Booking, error) {
	var b domain.Booking
	err := a.bookings.do(ctx, op{
		method: http.MethodPost, path: "/bookings/", route: "POST /bookings/",
		in: in, out: &b,
	})
	return b, err
}

func (a *API) MyBookings(ctx context.Context, page int) (domain.Page[domain.Booking], error) {
	var env envelope[domain.Booking]
	err := a.bookings.do(ctx, op{
		method: http.MethodGet, path: "/bookings/mine", route: "GET /bookings/mine",
		query: pageQuery(page), out: &env,
	})
	if err != nil {
		return domain.Page[domain.Booking]{}, err
	}
	return env.toPage(page, 0), nil
}

func (a *API) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	var b domain.Booking
	err := a.bookings.do(ctx, op{
		method: http.MethodGet, path: fmt.Sprintf("/bookings/%d", id), route: "GET /bookings/{id}",
		out: &b,
	})
	return b, err
}

// RecordPayment relays a normalized provider confirmation.
func (a *API) RecordPayment(ctx context.Context, p domain.PaymentPayload) (domain.Booking, error) {
	var b domain.Booking
	err := a.bookings.do(ctx, op{
		method: http.MethodPost, path: fmt.Sprintf("/bookings/%d/payment", p.BookingID), route: "POST /bookings/{id}/payment",
		in: p, out: &b,
	})
	return b, err
}

func (a *API) LookupCoupon(ctx context.Context, propertyID int64, code string) (domain.Coupon, error) {
	var c domain.Coupon
	err := a.bookings.do(ctx, op{
		method: http.MethodGet, path: "/coupons/lookup", route: "GET /coupons/lookup",
		query: url.Values{"code": {code}, "property_id": {strconv.FormatInt(propertyID, 10)}}, out: &c,
	})
	return c, err
}
