// Package models defines the client-side domain objects: the signed-in
// profile, the child resources it owns, and public catalog data.
package models

import "time"

// Ref points at a remote entity. ID is what the profile's reference lists
// carry; DocumentID addresses the entity in URLs.
type Ref struct {
	ID         int64
	DocumentID string
}

// Profile is the signed-in user together with the references to the child
// resources they own. Addresses and Adverts should equal the children whose
// owner is this profile; that is maintained best-effort, not atomically.
type Profile struct {
	ID          int64
	DocumentID  string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	DateOfBirth time.Time
	Blocked     bool
	Confirmed   bool
	Avatar      *UploadedFile
	Addresses   []Ref
	Adverts     []Ref
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Profile) AddressIDs() []int64 { return IDs(p.Addresses) }
func (p *Profile) AdvertIDs() []int64  { return IDs(p.Adverts) }

// ProfileUpdate carries scalar profile changes; nil fields are left as they are.
type ProfileUpdate struct {
	Username    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DateOfBirth *time.Time
}

// IDs returns the numeric ids of refs in order.
func IDs(refs []Ref) []int64 {
	ids := make([]int64, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

// FindRef returns the ref with the given id.
func FindRef(refs []Ref, id int64) (Ref, bool) {
	for _, r := range refs {
		if r.ID == id {
			return r, true
		}
	}
	return Ref{}, false
}

// UploadedFile is a file stored by the remote upload endpoint.
type UploadedFile struct {
	ID   int64
	Name string
	URL  string
	Mime string
	Size int64
}

// Category groups adverts in the catalog.
type Category struct {
	ID         int64
	DocumentID string
	Name       string
	Slug       string
}

// Pagination mirrors the paging metadata of list responses.
type Pagination struct {
	Page      int
	PageSize  int
	PageCount int
	Total     int
}
