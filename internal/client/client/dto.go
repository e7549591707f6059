package client

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

type dataEnvelope[T any] struct {
	Data T        `json:"data"`
	Meta *metaDTO `json:"meta,omitempty"`
}

type metaDTO struct {
	Pagination *paginationDTO `json:"pagination,omitempty"`
}

type paginationDTO struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

type refDTO struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
}

// mediaDTO is an upload-plugin file; Size is in kilobytes.
type mediaDTO struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Mime string  `json:"mime"`
	Size float64 `json:"size"`
}

type userDTO struct {
	ID          int64     `json:"id"`
	DocumentID  string    `json:"documentId"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   *string   `json:"firstName"`
	LastName    *string   `json:"lastName"`
	PhoneNumber *string   `json:"phoneNumber"`
	DateOfBirth *string   `json:"dateOfBirth"`
	Blocked     bool      `json:"blocked"`
	Confirmed   bool      `json:"confirmed"`
	Avatar      *mediaDTO `json:"avatar"`
	Addresses   []refDTO  `json:"addresses"`
	Adverts     []refDTO  `json:"user_adverts"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type authDTO struct {
	JWT  string  `json:"jwt"`
	User userDTO `json:"user"`
}

type addressDTO struct {
	ID           int64   `json:"id"`
	DocumentID   string  `json:"documentId"`
	Name         string  `json:"name"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         string  `json:"city"`
	PostCode     string  `json:"postCode"`
	Country      string  `json:"country"`
	PhoneNumber  *string `json:"phoneNumber"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

type addressInput struct {
	Name         string  `json:"name"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         string  `json:"city"`
	PostCode     string  `json:"postCode"`
	Country      string  `json:"country"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
}

// addressUpdate is addressInput for PUT: a blank optional field is sent as
// null so the stored value is cleared instead of kept.
type addressUpdate struct {
	Name         string  `json:"name"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         string  `json:"city"`
	PostCode     string  `json:"postCode"`
	Country      string  `json:"country"`
	PhoneNumber  *string `json:"phoneNumber"`
}

type advertDTO struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"documentId"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	Price      float64   `json:"price"`
	Currency   *string   `json:"currency"`
	Category   *refDTO   `json:"category"`
	Image      *mediaDTO `json:"image"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

type advertInput struct {
	Name     string  `json:"name"`
	Content  string  `json:"content"`
	Price    float64 `json:"price"`
	Currency *string `json:"currency,omitempty"`
	Category *int64  `json:"category,omitempty"`
	Image    *int64  `json:"image,omitempty"`
}

// advertUpdate is advertInput for PUT, sending cleared fields as null.
type advertUpdate struct {
	Name     string  `json:"name"`
	Content  string  `json:"content"`
	Price    float64 `json:"price"`
	Currency *string `json:"currency"`
	Category *int64  `json:"category"`
	Image    *int64  `json:"image"`
}

type categoryDTO struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
}

// ProfilePatch is a partial profile update. Nil fields are not sent. For the
// optional text fields a pointer to "" clears the value. Non-nil reference
// lists replace the stored list, so an empty slice unlinks everything.
type ProfilePatch struct {
	Username    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DateOfBirth *time.Time
	Addresses   []int64
	Adverts     []int64
	Avatar      *int64
}

func (p ProfilePatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Username != nil {
		m["username"] = strings.TrimSpace(*p.Username)
	}
	putOptional(m, "firstName", p.FirstName)
	putOptional(m, "lastName", p.LastName)
	putOptional(m, "phoneNumber", p.PhoneNumber)
	if p.DateOfBirth != nil {
		if p.DateOfBirth.IsZero() {
			m["dateOfBirth"] = nil
		} else {
			m["dateOfBirth"] = timex.FormatDate(*p.DateOfBirth)
		}
	}
	if p.Addresses != nil {
		m["addresses"] = p.Addresses
	}
	if p.Adverts != nil {
		m["user_adverts"] = p.Adverts
	}
	if p.Avatar != nil {
		m["avatar"] = *p.Avatar
	}
	return json.Marshal(m)
}

func putOptional(m map[string]any, key string, v *string) {
	if v == nil {
		return
	}
	if s := common.Optional(*v); s != nil {
		m[key] = *s
	} else {
		m[key] = nil
	}
}

// IsEmpty reports whether the patch would change nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil &&
		p.PhoneNumber == nil && p.DateOfBirth == nil &&
		p.Addresses == nil && p.Adverts == nil && p.Avatar == nil
}

// PatchFromUpdate converts user-facing profile changes into a patch.
func PatchFromUpdate(u models.ProfileUpdate) ProfilePatch {
	return ProfilePatch{
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		DateOfBirth: u.DateOfBirth,
	}
}

func newAddressInput(d models.AddressDraft) addressInput {
	return addressInput{
		Name:         strings.TrimSpace(d.Name),
		AddressLine1: strings.TrimSpace(d.AddressLine1),
		AddressLine2: common.Optional(d.AddressLine2),
		City:         strings.TrimSpace(d.City),
		PostCode:     strings.TrimSpace(d.PostCode),
		Country:      strings.TrimSpace(d.Country),
		PhoneNumber:  common.Optional(d.PhoneNumber),
	}
}

func newAdvertInput(d models.AdvertDraft) advertInput {
	in := advertInput{
		Name:     strings.TrimSpace(d.Name),
		Content:  strings.TrimSpace(d.Content),
		Price:    d.Price,
		Currency: common.Optional(d.Currency),
	}
	if d.CategoryID != 0 {
		id := d.CategoryID
		in.Category = &id
	}
	if d.ImageID != 0 {
		id := d.ImageID
		in.Image = &id
	}
	return in
}

// decoder maps wire DTOs onto domain models. Malformed timestamps are logged
// and left zero.
type decoder struct {
	log logging.Logger
}

func (d decoder) timestamp(ctx context.Context, entity, field, s string) time.Time {
	t, err := timex.ParseTimestamp(s)
	if err != nil {
		d.log.Warn(ctx, "ignoring malformed timestamp", "entity", entity, "field", field, "error", err)
		return time.Time{}
	}
	return t
}

func (d decoder) profile(ctx context.Context, u userDTO) models.Profile {
	p := models.Profile{
		ID:          u.ID,
		DocumentID:  u.DocumentID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   common.Deref(u.FirstName),
		LastName:    common.Deref(u.LastName),
		PhoneNumber: common.Deref(u.PhoneNumber),
		Blocked:     u.Blocked,
		Confirmed:   u.Confirmed,
		Avatar:      uploadedFile(u.Avatar),
		Addresses:   refs(u.Addresses),
		Adverts:     refs(u.Adverts),
		CreatedAt:   d.timestamp(ctx, "user", "createdAt", u.CreatedAt),
		UpdatedAt:   d.timestamp(ctx, "user", "updatedAt", u.UpdatedAt),
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = d.timestamp(ctx, "user", "dateOfBirth", *u.DateOfBirth)
	}
	return p
}

func (d decoder) address(ctx context.Context, a addressDTO) models.Address {
	return models.Address{
		ID:           a.ID,
		DocumentID:   a.DocumentID,
		Name:         a.Name,
		AddressLine1: a.AddressLine1,
		AddressLine2: common.Deref(a.AddressLine2),
		City:         a.City,
		PostCode:     a.PostCode,
		Country:      a.Country,
		PhoneNumber:  common.Deref(a.PhoneNumber),
		CreatedAt:    d.timestamp(ctx, "address", "createdAt", a.CreatedAt),
		UpdatedAt:    d.timestamp(ctx, "address", "updatedAt", a.UpdatedAt),
	}
}

func (d decoder) advert(ctx context.Context, a advertDTO) models.Advert {
	adv := models.Advert{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		Name:       a.Name,
		Content:    a.Content,
		Price:      a.Price,
		Currency:   common.Deref(a.Currency),
		Image:      uploadedFile(a.Image),
		CreatedAt:  d.timestamp(ctx, "advert", "createdAt", a.CreatedAt),
		UpdatedAt:  d.timestamp(ctx, "advert", "updatedAt", a.UpdatedAt),
	}
	if a.Category != nil {
		adv.CategoryID = a.Category.ID
	}
	return adv
}

func category(c categoryDTO) models.Category {
	return models.Category{ID: c.ID, DocumentID: c.DocumentID, Name: c.Name, Slug: c.Slug}
}

func uploadedFile(m *mediaDTO) *models.UploadedFile {
	if m == nil {
		return nil
	}
	return &models.UploadedFile{
		ID:   m.ID,
		Name: m.Name,
		URL:  m.URL,
		Mime: m.Mime,
		Size: int64(math.Round(m.Size * 1024)),
	}
}

func refs(in []refDTO) []models.Ref {
	out := make([]models.Ref, 0, len(in))
	for _, r := range in {
		out = append(out, models.Ref{ID: r.ID, DocumentID: r.DocumentID})
	}
	return out
}

func pagination(p *metaDTO) models.Pagination {
	if p == nil || p.Pagination == nil {
		return models.Pagination{}
	}
	return models.Pagination{
		Page:      p.Pagination.Page,
		PageSize:  p.Pagination.PageSize,
		PageCount: p.Pagination.PageCount,
		Total:     p.Pagination.Total,
	}
}
