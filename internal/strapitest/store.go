package strapitest

import (
	"time"

	"github.com/dmitrijs2005/bazaar/internal/timex"
	"github.com/google/uuid"
)

type user struct {
	ID           int64
	DocumentID   string
	Username     string
	Email        string
	PasswordHash []byte
	FirstName    *string
	LastName     *string
	PhoneNumber  *string
	DateOfBirth  *string
	AvatarID     int64
	AddressIDs   []int64
	AdvertIDs    []int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type address struct {
	ID           int64
	DocumentID   string
	Name         string
	AddressLine1 string
	AddressLine2 *string
	City         string
	PostCode     string
	Country      string
	PhoneNumber  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type advert struct {
	ID         int64
	DocumentID string
	Name       string
	Content    string
	Price      float64
	Currency   *string
	CategoryID int64
	ImageID    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type category struct {
	ID         int64
	DocumentID string
	Name       string
	Slug       string
}

type file struct {
	ID   int64
	Name string
	Mime string
	Size int64
	Data []byte
}

// UserState is a snapshot of a stored user for assertions.
type UserState struct {
	ID          int64
	Username    string
	Email       string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	AvatarID    int64
	AddressIDs  []int64
	AdvertIDs   []int64
}

// User returns the stored state of user id.
func (s *Server) User(id int64) (UserState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return UserState{}, false
	}
	return UserState{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		AvatarID:    u.AvatarID,
		AddressIDs:  append([]int64{}, u.AddressIDs...),
		AdvertIDs:   append([]int64{}, u.AdvertIDs...),
	}, true
}

// HasAddress reports whether an address with id exists.
func (s *Server) HasAddress(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.addresses[id]
	return ok
}

// HasAdvert reports whether an advert with id exists.
func (s *Server) HasAdvert(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.adverts[id]
	return ok
}

// AddCategory stores a category and returns its id.
func (s *Server) AddCategory(name, slug string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocIDLocked()
	s.categories[id] = &category{ID: id, DocumentID: uuid.NewString(), Name: name, Slug: slug}
	return id
}

// AddAdvert stores an advert that no profile references and returns its id.
func (s *Server) AddAdvert(name string, price float64, categoryID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocIDLocked()
	now := s.now().UTC()
	s.adverts[id] = &advert{
		ID: id, DocumentID: uuid.NewString(), Name: name, Price: price,
		CategoryID: categoryID, CreatedAt: now, UpdatedAt: now,
	}
	return id
}

// LinkAddress appends id to the user's address list directly.
func (s *Server) LinkAddress(userID, addressID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.AddressIDs = append(u.AddressIDs, addressID)
	}
}

func ts(t time.Time) string { return timex.FormatTimestamp(t) }
