package marketplace

import (
	"fmt"

	"staybook/internal/auth"
	"staybook/internal/domain"
)

// Endpoints holds the base URL of each upstream service.
type Endpoints struct {
	Users          string
	Properties     string
	Bookings       string
	Vendors        string
	VendorServices string
	RPS            int
}

// API implements every upstream port on top of one Client per service.
type API struct {
	users      *Client
	properties *Client
	bookings   *Client
	vendors    *Client
	services   *Client
}

var (
	_ domain.AuthAPI       = (*API)(nil)
	_ domain.PropertyAPI   = (*API)(nil)
	_ domain.ImageAPI      = (*API)(nil)
	_ domain.BookingAPI    = (*API)(nil)
	_ domain.ExperienceAPI = (*API)(nil)
	_ domain.VendorAPI     = (*API)(nil)
	_ auth.Refresher       = (*API)(nil)
)

func NewAPI(e Endpoints) (*API, error) {
	var (
		a   API
		err error
	)
	for _, c := range []struct {
		dst  **Client
		name string
		base string
	}{
		{&a.users, "users", e.Users},
		{&a.properties, "properties", e.Properties},
		{&a.bookings, "bookings", e.Bookings},
		{&a.vendors, "vendors", e.Vendors},
		{&a.services, "vendor_services", e.VendorServices},
	} {
		if *c.dst, err = New(c.name, c.base, e.RPS); err != nil {
			return nil, fmt.Errorf("marketplace: %w", err)
		}
	}
	return &a, nil
}
