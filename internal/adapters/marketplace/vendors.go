package marketplace

import (
	"context"
	"fmt"
	"net/http"

	"staybook/internal/domain"
)

func (a *API) GetProfile(ctx context.Context) (domain.VendorProfile, error) {
	var p domain.VendorProfile
	err := a.vendors.do(ctx, op{
		method: http.MethodGet, path: "/vendors/profile/", route: "GET /vendors/profile/",
		out: &p,
	})
	return p, err
}

// UpdateProfile saves one onboarding step; only non-nil sections are sent.
func (a *API) UpdateProfile(ctx context.Context, in domain.VendorProfileUpdate) (domain.VendorProfile, error) {
	var p domain.VendorProfile
	err := a.vendors.do(ctx, op{
		method: http.MethodPatch, path: "/vendors/profile/", route: "PATCH /vendors/profile/",
		in: in, out: &p,
	})
	return p, err
}

func (a *API) SubmitProfile(ctx context.Context) (domain.VendorProfile, error) {
	var p domain.VendorProfile
	err := a.vendors.do(ctx, op{
		method: http.MethodPost, path: "/vendors/profile/submit/", route: "POST /vendors/profile/submit/",
		out: &p,
	})
	return p, err
}

func (a *API) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	err := a.services.do(ctx, op{
		method: http.MethodGet, path: "/vendors/coupons/", route: "GET /vendors/coupons/",
		out: &out,
	})
	return out, err
}

func (a *API) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	var out domain.Coupon
	err := a.services.do(ctx, op{
		method: http.MethodPost, path: "/vendors/coupons/", route: "POST /vendors/coupons/",
		in: c, out: &out,
	})
	return out, err
}

func (a *API) UpdateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	var out domain.Coupon
	err := a.services.do(ctx, op{
		method: http.MethodPut, path: fmt.Sprintf("/vendors/coupons/%d", c.ID), route: "PUT /vendors/coupons/{id}",
		in: c, out: &out,
	})
	return out, err
}

func (a *API) DeleteCoupon(ctx context.Context, id int64) error {
	return a.services.do(ctx, op{
		method: http.MethodDelete, path: fmt.Sprintf("/vendors/coupons/%d", id), route: "DELETE /vendors/coupons/{id}",
	})
}

func (a *API) ListServices(ctx context.Context) ([]domain.VendorService, error) {
	var out []domain.VendorService
	err := a.services.do(ctx, op{
		method: http.MethodGet, path: "/vendors/services/", route: "GET /vendors/services/",
		out: &out,
	})
	return out, err
}

func (a *API) CreateService(ctx context.Context, s domain.VendorService) (domain.VendorService, error) {
	var out domain.VendorService
	err := a.services.do(ctx, op{
		method: http.MethodPost, path: "/vendors/services/", route: "POST /vendors/services/",
		in: s, out: &out,
	})
	return out, err
}

func (a *API) UpdateService(ctx context.Context, s domain.VendorService) (domain.VendorService, error) {
	var out domain.VendorService
	err := a.services.do(ctx, op{
		method: http.MethodPut, path: fmt.Sprintf("/vendors/services/%d", s.ID), route: "PUT /vendors/services/{id}",
		in: s, out: &out,
	})
	return out, err
}

func (a *API) DeleteService(ctx context.Context, id int64) error {
	return a.services.do(ctx, op{
		method: http.MethodDelete, path: fmt.Sprintf("/vendors/services/%d", id), route: "DELETE /vendors/services/{id}",
	})
}
