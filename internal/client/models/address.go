package models

import "time"

// AddressDraft is the user input for a new address. AddressLine2 and
// PhoneNumber are optional; blank values are not sent.
type AddressDraft struct {
	Name         string
	AddressLine1 string
	AddressLine2 string
	City         string
	PostCode     string
	Country      string
	PhoneNumber  string
}

// Address is a postal address owned by one profile.
type Address struct {
	ID           int64
	DocumentID   string
	Name         string
	AddressLine1 string
	AddressLine2 string
	City         string
	PostCode     string
	Country      string
	PhoneNumber  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Address) Ref() Ref { return Ref{ID: a.ID, DocumentID: a.DocumentID} }

// Draft returns the editable fields of a.
func (a Address) Draft() AddressDraft {
	return AddressDraft{
		Name:         a.Name,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		PostCode:     a.PostCode,
		Country:      a.Country,
		PhoneNumber:  a.PhoneNumber,
	}
}
