package domain

type SearchFilters struct {
	Location     string   `json:"location,omitempty"`
	CheckIn      string   `json:"check_in,omitempty"` // YYYY-MM-DD
	CheckOut     string   `json:"check_out,omitempty"`
	Guests       int      `json:"guests,omitempty"`
	MinPrice     float64  `json:"min_price,omitempty"`
	MaxPrice     float64  `json:"max_price,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	PlaceType    string   `json:"place_type,omitempty"`
	Category     string   `json:"category,omitempty"`
}

// Page is one upstream response for a paginated resource.
type Page[T any] struct {
	Items   []T  `json:"results"`
	Total   int  `json:"count"`
	HasMore bool `json:"has_more"`
	Page    int  `json:"page"`
}

type SearchPage = Page[Property]
