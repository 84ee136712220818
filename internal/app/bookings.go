package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain"
	"staybook/internal/querycache"
)

var (
	ErrInvalidStay   = errors.New("app: check-out must be after check-in")
	ErrTooManyGuests = errors.New("app: too many guests")
	ErrStayTooShort  = errors.New("app: stay shorter than the experience minimum")
)

type BookingService struct {
	api         domain.BookingAPI
	properties  *PropertyService
	experiences *ExperienceService
	cache       *querycache.Cache[domain.Page[domain.Booking]]
	inv         *Invalidator
	now         func() time.Time
}

func NewBookingService(api domain.BookingAPI, props *PropertyService, exps *ExperienceService, cache *querycache.Cache[domain.Page[domain.Booking]], inv *Invalidator) *BookingService {
	return &BookingService{api: api, properties: props, experiences: exps, cache: cache, inv: inv, now: time.Now}
}

// Mine lists the caller's bookings; entries are scoped and tagged per user.
func (s *BookingService) Mine(ctx context.Context, page int) (domain.Page[domain.Booking], error) {
	if page < 1 {
		page = 1
	}
	sc := userScope(ctx)
	return s.cache.Fetch(ctx, sc.key("bookings", page), []string{querycache.BookingsTag(sc.subject)},
		func(ctx context.Context) (domain.Page[domain.Booking], error) {
			return s.api.MyBookings(ctx, page)
		})
}

func (s *BookingService) Get(ctx context.Context, id int64) (domain.Booking, error) {
	return s.api.GetBooking(ctx, id)
}

// Quote prices a stay from the property's current pricing. A coupon is
// taken off the nightly subtotal; an experience enforces its minimum
// nights.
func (s *BookingService) Quote(ctx context.Context, req domain.BookingRequest) (domain.Totals, error) {
	nights := domain.Nights(req.CheckIn, req.CheckOut)
	if nights < 1 {
		return domain.Totals{}, ErrInvalidStay
	}
	p, err := s.properties.Get(ctx, req.PropertyID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("quote property %d: %w", req.PropertyID, err)
	}
	if p.Capacity.Guests > 0 && req.Adults+req.Children > p.Capacity.Guests {
		return domain.Totals{}, fmt.Errorf("%w: property sleeps %d", ErrTooManyGuests, p.Capacity.Guests)
	}
	if req.ExperienceID != 0 {
		x, err := s.experiences.Get(ctx, req.ExperienceID)
		if err != nil {
			return domain.Totals{}, fmt.Errorf("quote experience %d: %w", req.ExperienceID, err)
		}
		if !x.Allows(nights) {
			return domain.Totals{}, fmt.Errorf("%w: %q needs %d nights", ErrStayTooShort, x.Title, x.MinNights)
		}
	}

	t := domain.ComputeTotals(p.Pricing, nights)
	code := strings.ToUpper(strings.TrimSpace(req.CouponCode))
	if code == "" {
		return t, nil
	}
	c, err := s.api.LookupCoupon(ctx, req.PropertyID, code)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("coupon %s: %w", code, err)
	}
	d, err := c.Discount(t.Subtotal, s.now())
	if err != nil {
		return domain.Totals{}, fmt.Errorf("coupon %s: %w", code, err)
	}
	return t.WithDiscount(d), nil
}

// Create books a stay. A missing idempotency key is generated so an
// upstream retry cannot double-book. Coupons and experiences are checked
// here first so a bad code fails before anything is booked.
func (s *BookingService) Create(ctx context.Context, req domain.BookingRequest) (domain.Booking, error) {
	if domain.Nights(req.CheckIn, req.CheckOut) < 1 {
		return domain.Booking{}, ErrInvalidStay
	}
	if strings.TrimSpace(req.CouponCode) != "" || req.ExperienceID != 0 {
		if _, err := s.Quote(ctx, req); err != nil {
			return domain.Booking{}, err
		}
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	b, err := s.api.CreateBooking(ctx, req)
	if err != nil {
		return domain.Booking{}, err
	}
	s.inv.Invalidate(ctx, querycache.BookingsTag(userScope(ctx).subject), querycache.PropertyTag(req.PropertyID))
	return b, nil
}
