package domain

import (
	"context"
	"io"
	"net/url"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (Credentials, error)
	Refresh(ctx context.Context, refresh string) (Credentials, error)
	Logout(ctx context.Context, refresh string) error
	Me(ctx context.Context) (User, error)
}

type PropertyAPI interface {
	SearchProperties(ctx context.Context, q url.Values) (SearchPage, error)
	GetProperty(ctx context.Context, id int64) (Property, error)
	CreateProperty(ctx context.Context, in PropertyInput) (Property, error)
	UpdateProperty(ctx context.Context, id int64, in PropertyInput) (Property, error)
	DeleteProperty(ctx context.Context, id int64) error
}

type ImageAPI interface {
	UploadImage(ctx context.Context, name string, r io.Reader) (Image, error)
	DeleteImage(ctx context.Context, id int64) error
}

type BookingAPI interface {
	CreateBooking(ctx context.Context, in BookingRequest) (Booking, error)
	MyBookings(ctx context.Context, page int) (Page[Booking], error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	RecordPayment(ctx context.Context, p PaymentPayload) (Booking, error)
	// LookupCoupon resolves a code against the coupons of the vendor
	// owning propertyID.
	LookupCoupon(ctx context.Context, propertyID int64, code string) (Coupon, error)
}

type ExperienceAPI interface {
	ListExperiences(ctx context.Context, page int) (Page[Experience], error)
	GetExperience(ctx context.Context, id int64) (Experience, error)
}

type VendorAPI interface {
	GetProfile(ctx context.Context) (VendorProfile, error)
	UpdateProfile(ctx context.Context, in VendorProfileUpdate) (VendorProfile, error)
	SubmitProfile(ctx context.Context) (VendorProfile, error)

	ListCoupons(ctx context.Context) ([]Coupon, error)
	CreateCoupon(ctx context.Context, c Coupon) (Coupon, error)
	UpdateCoupon(ctx context.Context, c Coupon) (Coupon, error)
	DeleteCoupon(ctx context.Context, id int64) error

	ListServices(ctx context.Context) ([]VendorService, error)
	CreateService(ctx context.Context, s VendorService) (VendorService, error)
	UpdateService(ctx context.Context, s VendorService) (VendorService, error)
	DeleteService(ctx context.Context, id int64) error
}

// Charge is the provider-side state of a checkout session.
type Charge struct {
	ID        string
	BookingID int64
	Amount    int64
	Currency  string
	Status    string
	Paid      bool
}

type PaymentProvider interface {
	RetrieveCharge(ctx context.Context, id string) (Charge, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type LedgerRepository interface {
	GetPayment(ctx context.Context, sessionID string) (PaymentRecord, error)
	SavePayment(ctx context.Context, p PaymentRecord) error
	RecordOrphanImages(ctx context.Context, ids []int64, reason string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev InvalidationEvent) error
}
