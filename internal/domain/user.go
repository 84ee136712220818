package domain

import "time"

type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"` // guest|host|vendor
}

// Credentials is the access/refresh pair issued by the user service.
type Credentials struct {
	Access  string `json:"access" yaml:"access,omitempty"`
	Refresh string `json:"refresh" yaml:"refresh,omitempty"`
}

func (c Credentials) Empty() bool { return c.Access == "" && c.Refresh == "" }

// PaymentRecord is one relayed payment confirmation.
type PaymentRecord struct {
	SessionID   string    `json:"session_id"`
	BookingID   int64     `json:"booking_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Paid        bool      `json:"paid"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// InvalidationEvent carries cache tags invalidated by a committed mutation.
type InvalidationEvent struct {
	Tags   []string `json:"tags"`
	Origin string   `json:"origin,omitempty"`
}
