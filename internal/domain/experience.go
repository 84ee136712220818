package domain

type Experience struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Images      []Image  `json:"images,omitempty"`
	MinNights   int      `json:"min_nights"`
	PropertyIDs []int64  `json:"property_ids,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (e Experience) EntityID() int64 { return e.ID }

// Allows reports whether a stay of n nights satisfies the minimum-nights rule.
func (e Experience) Allows(n int) bool { return n >= e.MinNights }
