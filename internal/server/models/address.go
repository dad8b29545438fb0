package models

import "time"

// Address is the postal address of a client. A client has at most one.
type Address struct {
	ID           int64
	ClientID     int64
	ZipCode      string
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	Country      string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
}

type AddressPatch struct {
	ZipCode      *string
	Street       *string
	Number       *string
	Complement   *string
	Neighborhood *string
	City         *string
	State        *string
	Country      *string
}

// Apply returns a copy of a with the patch applied.
func (p AddressPatch) Apply(a Address) Address {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.ZipCode, p.ZipCode)
	set(&a.Street, p.Street)
	set(&a.Number, p.Number)
	set(&a.Complement, p.Complement)
	set(&a.Neighborhood, p.Neighborhood)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.Country, p.Country)
	return a
}

// IsEmpty reports whether the patch changes nothing.
func (p AddressPatch) IsEmpty() bool {
	return p == AddressPatch{}
}
