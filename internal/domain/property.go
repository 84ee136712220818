package domain

type Location struct {
	Address string  `json:"address"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Pricing struct {
	Nightly       float64 `json:"nightly"`
	CleaningFee   float64 `json:"cleaning_fee,omitempty"`
	ServiceFeePct float64 `json:"service_fee_pct,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

type Capacity struct {
	Guests    int `json:"guests"`
	Bedrooms  int `json:"bedrooms,omitempty"`
	Beds      int `json:"beds,omitempty"`
	Bathrooms int `json:"bathrooms,omitempty"`
}

type Property struct {
	ID           int64    `json:"id"`
	HostID       int64    `json:"host_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	PlaceType    string   `json:"place_type,omitempty"`    // entire_place|private_room|shared_room
	PropertyType string   `json:"property_type,omitempty"` // villa|apartment|...
	Category     string   `json:"category,omitempty"`
	Location     Location `json:"location"`
	Pricing      Pricing  `json:"pricing"`
	Capacity     Capacity `json:"capacity"`
	Amenities    []string `json:"amenities,omitempty"`
	Images       []Image  `json:"images,omitempty"`
}

// EntityID lets search results participate in merge de-duplication.
func (p Property) EntityID() int64 { return p.ID }

type Image struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// PropertyInput is the create/update payload; ImageIDs reference images
// uploaded before the property itself is created.
type PropertyInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	PlaceType    string   `json:"place_type,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Category     string   `json:"category,omitempty"`
	Location     Location `json:"location"`
	Pricing      Pricing  `json:"pricing"`
	Capacity     Capacity `json:"capacity"`
	Amenities    []string `json:"amenities,omitempty"`
	ImageIDs     []int64  `json:"image_ids,omitempty"`
}
