package app_test

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/querycache"
	"staybook/internal/wizard"
)

// ---- fakes ----

// fakeMarket stands in for every upstream service.
type fakeMarket struct {
	mu sync.Mutex

	searchPages  map[int]domain.SearchPage
	searchCalls  []url.Values
	// a gated page blocks until its channel is closed; each call that
	// reaches a gate is reported on searchGated
	searchGates  map[int]chan struct{}
	searchGated  chan int
	props        map[int64]domain.Property
	createErr    error
	uploaded     []string
	deleted      []int64
	deleteErr    map[int64]error
	nextImageID  int64
	bookings     []domain.BookingRequest
	mineCalls    int
	profile      domain.VendorProfile
	updates      []domain.VendorProfileUpdate
	payments     []domain.PaymentPayload
	couponsCalls int
	coupons      map[string]domain.Coupon
	experiences  map[int64]domain.Experience
	expCalls     int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		searchPages: map[int]domain.SearchPage{},
		searchGates: map[int]chan struct{}{},
		searchGated: make(chan int, 16),
		props:       map[int64]domain.Property{},
		deleteErr:   map[int64]error{},
		coupons:     map[string]domain.Coupon{},
		experiences: map[int64]domain.Experience{},
		profile:     domain.VendorProfile{ID: 1, Status: domain.StatusCompanyDetails},
	}
}

func (f *fakeMarket) SearchProperties(ctx context.Context, q url.Values) (domain.SearchPage, error) {
	page, _ := strconv.Atoi(q.Get("page"))
	if page == 0 {
		page = 1
	}
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, q)
	gate := f.searchGates[page]
	p, ok := f.searchPages[page]
	f.mu.Unlock()

	if gate != nil {
		f.searchGated <- page
		<-gate
	}
	if !ok {
		return domain.SearchPage{}, &domain.APIError{Status: 404}
	}
	p.Page = page
	return p, nil
}

func (f *fakeMarket) searchedPages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.searchCalls))
	for i, q := range f.searchCalls {
		out[i] = q.Get("page")
	}
	return out
}

func (f *fakeMarket) lastSearchPage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.searchCalls) == 0 {
		return ""
	}
	p := f.searchCalls[len(f.searchCalls)-1].Get("page")
	if p == "" {
		return "1"
	}
	return p
}

func (f *fakeMarket) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	p, ok := f.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeMarket) CreateProperty(ctx context.Context, in domain.PropertyInput) (domain.Property, error) {
	if f.createErr != nil {
		return domain.Property{}, f.createErr
	}
	p := domain.Property{ID: 900, Title: in.Title, Pricing: in.Pricing}
	for _, id := range in.ImageIDs {
		p.Images = append(p.Images, domain.Image{ID: id})
	}
	f.props[p.ID] = p
	return p, nil
}

func (f *fakeMarket) UpdateProperty(ctx context.Context, id int64, in domain.PropertyInput) (domain.Property, error) {
	p := domain.Property{ID: id, Title: in.Title}
	f.props[id] = p
	return p, nil
}

func (f *fakeMarket) DeleteProperty(ctx context.Context, id int64) error {
	delete(f.props, id)
	return nil
}

func (f *fakeMarket) UploadImage(ctx context.Context, name string, r io.Reader) (domain.Image, error) {
	if name == "broken.jpg" {
		return domain.Image{}, errors.New("upload rejected")
	}
	f.nextImageID++
	f.uploaded = append(f.uploaded, name)
	return domain.Image{ID: f.nextImageID, URL: "https://cdn/" + name}, nil
}

func (f *fakeMarket) DeleteImage(ctx context.Context, id int64) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMarket) CreateBooking(ctx context.Context, in domain.BookingRequest) (domain.Booking, error) {
	f.bookings = append(f.bookings, in)
	return domain.Booking{ID: int64(len(f.bookings)), PropertyID: in.PropertyID, CheckIn: in.CheckIn, CheckOut: in.CheckOut}, nil
}

func (f *fakeMarket) MyBookings(ctx context.Context, page int) (domain.Page[domain.Booking], error) {
	f.mineCalls++
	return domain.Page[domain.Booking]{Items: []domain.Booking{{ID: 1}}, Total: 1, Page: page}, nil
}

func (f *fakeMarket) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return domain.Booking{ID: id}, nil
}

func (f *fakeMarket) RecordPayment(ctx context.Context, p domain.PaymentPayload) (domain.Booking, error) {
	f.payments = append(f.payments, p)
	return domain.Booking{ID: p.BookingID, PaymentStatus: domain.PaymentPaid}, nil
}

func (f *fakeMarket) LookupCoupon(ctx context.Context, propertyID int64, code string) (domain.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return domain.Coupon{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeMarket) ListExperiences(ctx context.Context, page int) (domain.Page[domain.Experience], error) {
	f.expCalls++
	out := domain.Page[domain.Experience]{Page: page}
	for _, x := range f.experiences {
		out.Items = append(out.Items, x)
	}
	out.Total = len(out.Items)
	return out, nil
}

func (f *fakeMarket) GetExperience(ctx context.Context, id int64) (domain.Experience, error) {
	x, ok := f.experiences[id]
	if !ok {
		return domain.Experience{}, domain.ErrNotFound
	}
	return x, nil
}

func (f *fakeMarket) GetProfile(ctx context.Context) (domain.VendorProfile, error) {
	return f.profile, nil
}

func (f *fakeMarket) UpdateProfile(ctx context.Context, u domain.VendorProfileUpdate) (domain.VendorProfile, error) {
	f.updates = append(f.updates, u)
	if u.Company != nil {
		f.profile.Company = *u.Company
	}
	if u.Area != nil {
		f.profile.Area = *u.Area
	}
	if u.Contact != nil {
		f.profile.Contact = *u.Contact
	}
	if u.Status != "" {
		f.profile.Status = u.Status
	}
	return f.profile, nil
}

func (f *fakeMarket) SubmitProfile(ctx context.Context) (domain.VendorProfile, error) {
	f.profile.Status = domain.StatusCompleted
	return f.profile, nil
}

func (f *fakeMarket) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	f.couponsCalls++
	return []domain.Coupon{{ID: 1, Code: "EID25", DiscountType: domain.DiscountPercent, DiscountValue: 25}}, nil
}

func (f *fakeMarket) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	c.ID = 2
	return c, nil
}
func (f *fakeMarket) UpdateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	return c, nil
}
func (f *fakeMarket) DeleteCoupon(ctx context.Context, id int64) error { return nil }
func (f *fakeMarket) ListServices(ctx context.Context) ([]domain.VendorService, error) {
	return nil, nil
}
func (f *fakeMarket) CreateService(ctx context.Context, s domain.VendorService) (domain.VendorService, error) {
	return s, nil
}
func (f *fakeMarket) UpdateService(ctx context.Context, s domain.VendorService) (domain.VendorService, error) {
	return s, nil
}
func (f *fakeMarket) DeleteService(ctx context.Context, id int64) error { return nil }

type fakeLedger struct {
	payments map[string]domain.PaymentRecord
	orphans  []int64
}

func newFakeLedger() *fakeLedger { return &fakeLedger{payments: map[string]domain.PaymentRecord{}} }

func (l *fakeLedger) GetPayment(ctx context.Context, sessionID string) (domain.PaymentRecord, error) {
	p, ok := l.payments[sessionID]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}
	return p, nil
}

func (l *fakeLedger) SavePayment(ctx context.Context, p domain.PaymentRecord) error {
	l.payments[p.SessionID] = p
	return nil
}

func (l *fakeLedger) RecordOrphanImages(ctx context.Context, ids []int64, reason string) error {
	l.orphans = append(l.orphans, ids...)
	return nil
}

type fakeDrafts struct{ m map[string]wizard.State }

func (d *fakeDrafts) Save(ctx context.Context, id string, st wizard.State) error {
	d.m[id] = st
	return nil
}

func (d *fakeDrafts) Load(ctx context.Context, id string) (wizard.State, error) {
	st, ok := d.m[id]
	if !ok {
		return wizard.State{}, wizard.ErrDraftNotFound
	}
	return st, nil
}

func (d *fakeDrafts) Delete(ctx context.Context, id string) error {
	delete(d.m, id)
	return nil
}

// harness wires every service against one fakeMarket.
type harness struct {
	market   *fakeMarket
	ledger   *fakeLedger
	drafts   *fakeDrafts
	inv      *app.Invalidator
	results  *querycache.Cache[domain.SearchPage]
	search   *app.SearchService
	props    *app.PropertyService
	exps     *app.ExperienceService
	bookings *app.BookingService
	vendors  *app.VendorService
	wizards  *app.WizardService
}

func newHarness() *harness {
	h := &harness{market: newFakeMarket(), ledger: newFakeLedger(), drafts: &fakeDrafts{m: map[string]wizard.State{}}}
	searchCache := querycache.New[domain.SearchPage]("search", nil, time.Minute)
	propCache := querycache.New[domain.Property]("property", nil, time.Minute)
	bookingCache := querycache.New[domain.Page[domain.Booking]]("bookings", nil, time.Minute)
	couponCache := querycache.New[[]domain.Coupon]("coupons", nil, time.Minute)
	serviceCache := querycache.New[[]domain.VendorService]("services", nil, time.Minute)

	h.inv = app.NewInvalidator("test", nil, searchCache, propCache, bookingCache, couponCache, serviceCache)
	h.results = searchCache
	h.search = app.NewSearchService(h.market, searchCache)
	h.props = app.NewPropertyService(h.market, propCache, h.inv, h.ledger)
	h.exps = app.NewExperienceService(h.market, querycache.New[domain.Page[domain.Experience]]("experiences", nil, time.Minute))
	h.bookings = app.NewBookingService(h.market, h.props, h.exps, bookingCache, h.inv)
	h.vendors = app.NewVendorService(h.market, couponCache, serviceCache, h.inv)
	h.wizards = app.NewWizardService(h.drafts, h.bookings, h.props, h.vendors, memOpener)
	return h
}

func memOpener(ref string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(ref)), nil
}

func props(ids ...int64) []domain.Property {
	out := make([]domain.Property, len(ids))
	for i, id := range ids {
		out[i] = domain.Property{ID: id, Title: "p" + strconv.FormatInt(id, 10)}
	}
	return out
}
