package app

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/querycache"
	"staybook/internal/wizard"
)

// VendorService covers vendor onboarding and the vendor's coupon and
// service catalogues.
type VendorService struct {
	api      domain.VendorAPI
	coupons  *querycache.Cache[[]domain.Coupon]
	services *querycache.Cache[[]domain.VendorService]
	inv      *Invalidator
}

func NewVendorService(api domain.VendorAPI, coupons *querycache.Cache[[]domain.Coupon], services *querycache.Cache[[]domain.VendorService], inv *Invalidator) *VendorService {
	return &VendorService{api: api, coupons: coupons, services: services, inv: inv}
}

func (s *VendorService) Profile(ctx context.Context) (domain.VendorProfile, error) {
	return s.api.GetProfile(ctx)
}

// SaveStep stores one onboarding section and moves the application to the
// following status. Re-saving an earlier section leaves the status where it
// is.
func (s *VendorService) SaveStep(ctx context.Context, step string, v wizard.Values) (domain.VendorProfile, error) {
	u, err := wizard.ComposeVendorStep(step, v)
	if err != nil {
		return domain.VendorProfile{}, err
	}
	cur, err := s.api.GetProfile(ctx)
	if err != nil {
		return domain.VendorProfile{}, err
	}
	if cur.Status != u.Status && !cur.Status.CanMoveTo(u.Status) {
		u.Status = ""
	}
	return s.api.UpdateProfile(ctx, u)
}

// Submit sends the application for review. Only an application waiting in
// submit_for_review can be submitted.
func (s *VendorService) Submit(ctx context.Context) (domain.VendorProfile, error) {
	p, err := s.api.GetProfile(ctx)
	if err != nil {
		return domain.VendorProfile{}, err
	}
	if p.Status != domain.StatusSubmitForReview {
		return p, fmt.Errorf("%w: cannot submit from %q", domain.ErrInvalidTransition, p.Status)
	}
	return s.api.SubmitProfile(ctx)
}

// ---- coupons ----

func (s *VendorService) Coupons(ctx context.Context) ([]domain.Coupon, error) {
	sc := userScope(ctx)
	return s.coupons.Fetch(ctx, sc.key("coupons", 1), []string{querycache.CouponsTag(sc.subject)}, s.api.ListCoupons)
}

// FindCoupon looks a code up case-insensitively among the vendor's coupons.
func (s *VendorService) FindCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	cs, err := s.Coupons(ctx)
	if err != nil {
		return domain.Coupon{}, err
	}
	for _, c := range cs {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return domain.Coupon{}, fmt.Errorf("coupon %q: %w", code, domain.ErrNotFound)
}

func (s *VendorService) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	out, err := s.api.CreateCoupon(ctx, c)
	if err != nil {
		return domain.Coupon{}, err
	}
	s.inv.Invalidate(ctx, querycache.CouponsTag(userScope(ctx).subject))
	return out, nil
}

func (s *VendorService) UpdateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	out, err := s.api.UpdateCoupon(ctx, c)
	if err != nil {
		return domain.Coupon{}, err
	}
	s.inv.Invalidate(ctx, querycache.CouponsTag(userScope(ctx).subject))
	return out, nil
}

func (s *VendorService) DeleteCoupon(ctx context.Context, id int64) error {
	if err := s.api.DeleteCoupon(ctx, id); err != nil {
		return err
	}
	s.inv.Invalidate(ctx, querycache.CouponsTag(userScope(ctx).subject))
	return nil
}

// ---- services ----

func (s *VendorService) Services(ctx context.Context) ([]domain.VendorService, error) {
	sc := userScope(ctx)
	return s.services.Fetch(ctx, sc.key("services", 1), []string{querycache.ServicesTag(sc.subject)}, s.api.ListServices)
}

func (s *VendorService) CreateService(ctx context.Context, v domain.VendorService) (domain.VendorService, error) {
	out, err := s.api.CreateService(ctx, v)
	if err != nil {
		return domain.VendorService{}, err
	}
	s.inv.Invalidate(ctx, querycache.ServicesTag(userScope(ctx).subject))
	return out, nil
}

func (s *VendorService) UpdateService(ctx context.Context, v domain.VendorService) (domain.VendorService, error) {
	out, err := s.api.UpdateService(ctx, v)
	if err != nil {
		return domain.VendorService{}, err
	}
	s.inv.Invalidate(ctx, querycache.ServicesTag(userScope(ctx).subject))
	return out, nil
}

func (s *VendorService) DeleteService(ctx context.Context, id int64) error {
	if err := s.api.DeleteService(ctx, id); err != nil {
		return err
	}
	s.inv.Invalidate(ctx, querycache.ServicesTag(userScope(ctx).subject))
	return nil
}
