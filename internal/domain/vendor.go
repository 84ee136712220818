package domain

import "fmt"

type ApplicationStatus string

const (
	StatusCompanyDetails  ApplicationStatus = "company_details"
	StatusServiceArea     ApplicationStatus = "service_area"
	StatusContactDetails  ApplicationStatus = "contact_details"
	StatusSubmitForReview ApplicationStatus = "submit_for_review"
	StatusCompleted       ApplicationStatus = "completed"
	StatusApproved        ApplicationStatus = "approved"
)

var applicationFlow = map[ApplicationStatus]ApplicationStatus{
	StatusCompanyDetails:  StatusServiceArea,
	StatusServiceArea:     StatusContactDetails,
	StatusContactDetails:  StatusSubmitForReview,
	StatusSubmitForReview: StatusCompleted,
}

func (s ApplicationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusApproved
}

// Advance returns the next onboarding status. Terminal states cannot advance.
func (s ApplicationStatus) Advance() (ApplicationStatus, error) {
	next, ok := applicationFlow[s]
	if !ok {
		return s, fmt.Errorf("%w: %q has no successor", ErrInvalidTransition, s)
	}
	return next, nil
}

// CanMoveTo allows forward moves along the flow plus review -> approved.
func (s ApplicationStatus) CanMoveTo(to ApplicationStatus) bool {
	if s == StatusSubmitForReview && to == StatusApproved {
		return true
	}
	for cur := s; ; {
		next, ok := applicationFlow[cur]
		if !ok {
			return false
		}
		if next == to {
			return true
		}
		cur = next
	}
}

type CompanyDetails struct {
	BusinessName       string `json:"business_name"`
	RegistrationNumber string `json:"registration_number"`
	BusinessType       string `json:"business_type,omitempty"`
	Website            string `json:"website,omitempty"`
}

type ServiceArea struct {
	City      string   `json:"city"`
	Country   string   `json:"country"`
	RadiusKM  float64  `json:"radius_km"`
	Districts []string `json:"districts,omitempty"`
}

type ContactDetails struct {
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type VendorProfile struct {
	ID       int64             `json:"id"`
	UserID   int64             `json:"user_id"`
	Company  CompanyDetails    `json:"company"`
	Area     ServiceArea       `json:"service_area"`
	Contact  ContactDetails    `json:"contact"`
	Status   ApplicationStatus `json:"status"`
	Verified bool              `json:"verified"`
}

// VendorProfileUpdate is a partial update for one onboarding step.
type VendorProfileUpdate struct {
	Company *CompanyDetails   `json:"company,omitempty"`
	Area    *ServiceArea      `json:"service_area,omitempty"`
	Contact *ContactDetails   `json:"contact,omitempty"`
	Status  ApplicationStatus `json:"status,omitempty"`
}

type VendorService struct {
	ID          int64   `json:"id"`
	VendorID    int64   `json:"vendor_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Active      bool    `json:"active"`
}

func (s VendorService) EntityID() int64 { return s.ID }
