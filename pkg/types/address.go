package types

import "strings"

// Address is the shipping address snapshot stored on an order (jsonb).
type Address struct {
	Name       string  `json:"name" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country"`
}

// Normalize fills defaults and trims whitespace in place.
func (a *Address) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	if strings.TrimSpace(a.Country) == "" {
		a.Country = "IN"
	}
}
