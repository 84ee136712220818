package wizard

import (
	"net/mail"
	"sort"

	"staybook/internal/domain"
)

const (
	FlowBookingCheckout  = "booking_checkout"
	FlowVendorOnboarding = "vendor_onboarding"
	FlowPropertyEditor   = "property_editor"
)

var flows = map[string]func() *Wizard{
	FlowBookingCheckout:  NewBookingCheckout,
	FlowVendorOnboarding: NewVendorOnboarding,
	FlowPropertyEditor:   NewPropertyEditor,
}

// Start returns a fresh wizard for a registered flow.
func Start(flow string) (*Wizard, error) {
	mk, ok := flows[flow]
	if !ok {
		return nil, ErrUnknownFlow
	}
	return mk(), nil
}

func Flows() []string {
	out := make([]string, 0, len(flows))
	for k := range flows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---- booking checkout ----

func NewBookingCheckout() *Wizard {
	return New(FlowBookingCheckout,
		Step{
			Name: "dates",
			Fields: []Field{
				{Name: "property_id", Kind: Number, Required: true},
				{Name: "check_in", Kind: Date, Required: true},
				{Name: "check_out", Kind: Date, Required: true},
				{Name: "adults", Kind: Number, Required: true},
				{Name: "children", Kind: Number},
				{Name: "infants", Kind: Number},
			},
			Check: func(v Values) ValidationErrors {
				errs := ValidationErrors{}
				if !v.Time("check_out").After(v.Time("check_in")) {
					errs["check_out"] = "must be after check-in"
				}
				if v.Int("adults") < 1 {
					errs["adults"] = "at least one adult"
				}
				if v.Int("children") < 0 || v.Int("infants") < 0 {
					errs["children"] = "cannot be negative"
				}
				return errs
			},
		},
		Step{
			Name: "guest",
			Fields: []Field{
				{Name: "guest_name", Kind: String, Required: true},
				{Name: "guest_email", Kind: String, Required: true},
				{Name: "guest_phone", Kind: String},
				{Name: "message", Kind: String},
			},
			Check: checkEmail("guest_email"),
		},
		Step{
			Name: "review",
			Fields: []Field{
				{Name: "coupon_code", Kind: String},
				{Name: "accept_terms", Kind: Bool},
			},
			Check: func(v Values) ValidationErrors {
				if !v.Bool("accept_terms") {
					return ValidationErrors{"accept_terms": "must be accepted"}
				}
				return nil
			},
		},
	)
}

func ComposeBooking(v Values) domain.BookingRequest {
	return domain.BookingRequest{
		PropertyID: v.Int64("property_id"),
		CheckIn:    v.Time("check_in"),
		CheckOut:   v.Time("check_out"),
		Adults:     v.Int("adults"),
		Children:   v.Int("children"),
		Infants:    v.Int("infants"),
		GuestName:  v.String("guest_name"),
		GuestEmail: v.String("guest_email"),
		GuestPhone: v.String("guest_phone"),
		Message:    v.String("message"),
		CouponCode: v.String("coupon_code"),
	}
}

// ---- vendor onboarding ----

// NewVendorOnboarding mirrors the vendor application statuses: each step is
// saved upstream as the applicant moves past it.
func NewVendorOnboarding() *Wizard {
	return New(FlowVendorOnboarding,
		Step{
			Name: string(domain.StatusCompanyDetails),
			Fields: []Field{
				{Name: "business_name", Kind: String, Required: true},
				{Name: "registration_number", Kind: String, Required: true},
				{Name: "business_type", Kind: String},
				{Name: "website", Kind: String},
			},
		},
		Step{
			Name: string(domain.StatusServiceArea),
			Fields: []Field{
				{Name: "city", Kind: String, Required: true},
				{Name: "country", Kind: String, Required: true},
				{Name: "radius_km", Kind: Number, Required: true},
				{Name: "districts", Kind: List},
			},
			Check: func(v Values) ValidationErrors {
				if v.Float("radius_km") <= 0 {
					return ValidationErrors{"radius_km": "must be positive"}
				}
				return nil
			},
		},
		Step{
			Name: string(domain.StatusContactDetails),
			Fields: []Field{
				{Name: "contact_name", Kind: String, Required: true},
				{Name: "email", Kind: String, Required: true},
				{Name: "phone", Kind: String, Required: true},
			},
			Check: checkEmail("email"),
		},
		Step{
			Name: string(domain.StatusSubmitForReview),
			Fields: []Field{
				{Name: "confirm", Kind: Bool},
			},
			Check: func(v Values) ValidationErrors {
				if !v.Bool("confirm") {
					return ValidationErrors{"confirm": "must be confirmed"}
				}
				return nil
			},
		},
	)
}

// ComposeVendorStep builds the profile update saved when leaving step.
// The update carries the status the application moves to.
func ComposeVendorStep(step string, v Values) (domain.VendorProfileUpdate, error) {
	cur := domain.ApplicationStatus(step)
	next, err := cur.Advance()
	if err != nil {
		return domain.VendorProfileUpdate{}, err
	}
	u := domain.VendorProfileUpdate{Status: next}
	switch cur {
	case domain.StatusCompanyDetails:
		u.Company = &domain.CompanyDetails{
			BusinessName:       v.String("business_name"),
			RegistrationNumber: v.String("registration_number"),
			BusinessType:       v.String("business_type"),
			Website:            v.String("website"),
		}
	case domain.StatusServiceArea:
		u.Area = &domain.ServiceArea{
			City:      v.String("city"),
			Country:   v.String("country"),
			RadiusKM:  v.Float("radius_km"),
			Districts: v.Strings("districts"),
		}
	case domain.StatusContactDetails:
		u.Contact = &domain.ContactDetails{
			ContactName: v.String("contact_name"),
			Email:       v.String("email"),
			Phone:       v.String("phone"),
		}
	}
	return u, nil
}

// ---- property create/edit ----

func NewPropertyEditor() *Wizard {
	return New(FlowPropertyEditor,
		Step{
			Name: "basics",
			Fields: []Field{
				{Name: "title", Kind: String, Required: true},
				{Name: "description", Kind: String},
				{Name: "place_type", Kind: String, Required: true},
				{Name: "property_type", Kind: String, Required: true},
				{Name: "category", Kind: String},
			},
			Check: func(v Values) ValidationErrors {
				switch v.String("place_type") {
				case "entire_place", "private_room", "shared_room":
					return nil
				}
				return ValidationErrors{"place_type": "must be entire_place, private_room or shared_room"}
			},
		},
		Step{
			Name: "location",
			Fields: []Field{
				{Name: "address", Kind: String, Required: true},
				{Name: "city", Kind: String},
				{Name: "country", Kind: String},
				{Name: "lat", Kind: Number, Required: true},
				{Name: "lng", Kind: Number, Required: true},
			},
			Check: func(v Values) ValidationErrors {
				errs := ValidationErrors{}
				if lat := v.Float("lat"); lat < -90 || lat > 90 {
					errs["lat"] = "out of range"
				}
				if lng := v.Float("lng"); lng < -180 || lng > 180 {
					errs["lng"] = "out of range"
				}
				return errs
			},
		},
		Step{
			Name: "pricing",
			Fields: []Field{
				{Name: "nightly", Kind: Number, Required: true},
				{Name: "cleaning_fee", Kind: Number},
				{Name: "service_fee_pct", Kind: Number},
				{Name: "currency", Kind: String},
			},
			Check: func(v Values) ValidationErrors {
				errs := ValidationErrors{}
				if v.Float("nightly") <= 0 {
					errs["nightly"] = "must be positive"
				}
				if v.Float("cleaning_fee") < 0 {
					errs["cleaning_fee"] = "cannot be negative"
				}
				return errs
			},
		},
		Step{
			Name: "amenities",
			Fields: []Field{
				{Name: "amenities", Kind: List},
				{Name: "guests", Kind: Number, Required: true},
				{Name: "bedrooms", Kind: Number},
				{Name: "beds", Kind: Number},
				{Name: "bathrooms", Kind: Number},
			},
			Check: func(v Values) ValidationErrors {
				if v.Int("guests") < 1 {
					return ValidationErrors{"guests": "at least one guest"}
				}
				return nil
			},
		},
		Step{Name: "photos", MinAttachments: 1},
	)
}

// ComposeProperty builds the create/update payload. Image ids are filled in
// after the attachments are uploaded.
func ComposeProperty(v Values) domain.PropertyInput {
	return domain.PropertyInput{
		Title:        v.String("title"),
		Description:  v.String("description"),
		PlaceType:    v.String("place_type"),
		PropertyType: v.String("property_type"),
		Category:     v.String("category"),
		Location: domain.Location{
			Address: v.String("address"),
			City:    v.String("city"),
			Country: v.String("country"),
			Lat:     v.Float("lat"),
			Lng:     v.Float("lng"),
		},
		Pricing: domain.Pricing{
			Nightly:       v.Float("nightly"),
			CleaningFee:   v.Float("cleaning_fee"),
			ServiceFeePct: v.Float("service_fee_pct"),
			Currency:      v.String("currency"),
		},
		Capacity: domain.Capacity{
			Guests:    v.Int("guests"),
			Bedrooms:  v.Int("bedrooms"),
			Beds:      v.Int("beds"),
			Bathrooms: v.Int("bathrooms"),
		},
		Amenities: v.Strings("amenities"),
	}
}

func checkEmail(field string) func(Values) ValidationErrors {
	return func(v Values) ValidationErrors {
		if _, err := mail.ParseAddress(v.String(field)); err != nil {
			return ValidationErrors{field: "must be a valid email"}
		}
		return nil
	}
}
