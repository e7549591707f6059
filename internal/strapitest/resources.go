package strapitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func (s *Server) renderFileLocked(id int64) any {
	f, ok := s.files[id]
	if !ok {
		return nil
	}
	return map[string]any{
		"id":   f.ID,
		"name": f.Name,
		"url":  "/uploads/" + f.Name,
		"mime": f.Mime,
		"size": float64(f.Size) / 1024,
	}
}

func (s *Server) renderUserLocked(u *user, populate bool) map[string]any {
	m := map[string]any{
		"id":          u.ID,
		"documentId":  u.DocumentID,
		"username":    u.Username,
		"email":       u.Email,
		"provider":    "local",
		"confirmed":   true,
		"blocked":     false,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"phoneNumber": u.PhoneNumber,
		"dateOfBirth": u.DateOfBirth,
		"createdAt":   ts(u.CreatedAt),
		"updatedAt":   ts(u.UpdatedAt),
	}
	if !populate {
		return m
	}

	addrs := []any{}
	for _, id := range u.AddressIDs {
		if a, ok := s.addresses[id]; ok {
			addrs = append(addrs, renderAddress(a))
		}
	}
	ads := []any{}
	for _, id := range u.AdvertIDs {
		if a, ok := s.adverts[id]; ok {
			ads = append(ads, s.renderAdvertLocked(a))
		}
	}
	m["addresses"] = addrs
	m["user_adverts"] = ads
	m["avatar"] = s.renderFileLocked(u.AvatarID)
	return m
}

func renderAddress(a *address) map[string]any {
	return map[string]any{
		"id":           a.ID,
		"documentId":   a.DocumentID,
		"name":         a.Name,
		"addressLine1": a.AddressLine1,
		"addressLine2": a.AddressLine2,
		"city":         a.City,
		"postCode":     a.PostCode,
		"country":      a.Country,
		"phoneNumber":  a.PhoneNumber,
		"createdAt":    ts(a.CreatedAt),
		"updatedAt":    ts(a.UpdatedAt),
	}
}

func (s *Server) renderAdvertLocked(a *advert) map[string]any {
	m := map[string]any{
		"id":         a.ID,
		"documentId": a.DocumentID,
		"name":       a.Name,
		"content":    a.Content,
		"price":      a.Price,
		"currency":   a.Currency,
		"category":   nil,
		"image":      s.renderFileLocked(a.ImageID),
		"createdAt":  ts(a.CreatedAt),
		"updatedAt":  ts(a.UpdatedAt),
	}
	if c, ok := s.categories[a.CategoryID]; ok {
		m["category"] = map[string]any{"id": c.ID, "documentId": c.DocumentID, "name": c.Name, "slug": c.Slug}
	}
	return m
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	if id != callerID(r) {
		writeError(w, http.StatusForbidden, "ForbiddenError", "Forbidden")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, s.renderUserLocked(u, true))
}

type userPatch struct {
	Username    *string         `json:"username"`
	FirstName   json.RawMessage `json:"firstName"`
	LastName    json.RawMessage `json:"lastName"`
	PhoneNumber json.RawMessage `json:"phoneNumber"`
	DateOfBirth json.RawMessage `json:"dateOfBirth"`
	Addresses   *[]int64        `json:"addresses"`
	Adverts     *[]int64        `json:"user_adverts"`
	Avatar      json.RawMessage `json:"avatar"`
}

// nullable applies a JSON string-or-null field; an absent field is ignored.
func nullable(dst **string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if string(raw) == "null" {
		*dst = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok || id != callerID(r) {
		writeError(w, http.StatusForbidden, "ForbiddenError", "Forbidden")
		return
	}

	var p userPatch
	if err := readData(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}

	if p.Addresses != nil {
		for _, aid := range *p.Addresses {
			if _, ok := s.addresses[aid]; !ok {
				writeError(w, http.StatusBadRequest, "ValidationError", fmt.Sprintf("address %d does not exist", aid))
				return
			}
		}
	}
	if p.Adverts != nil {
		for _, aid := range *p.Adverts {
			if _, ok := s.adverts[aid]; !ok {
				writeError(w, http.StatusBadRequest, "ValidationError", fmt.Sprintf("advert %d does not exist", aid))
				return
			}
		}
	}

	if p.Username != nil {
		if strings.TrimSpace(*p.Username) == "" {
			writeError(w, http.StatusBadRequest, "ValidationError", "username must not be empty")
			return
		}
		u.Username = *p.Username
	}
	for _, f := range []struct {
		dst **string
		raw json.RawMessage
	}{
		{&u.FirstName, p.FirstName},
		{&u.LastName, p.LastName},
		{&u.PhoneNumber, p.PhoneNumber},
		{&u.DateOfBirth, p.DateOfBirth},
	} {
		if err := nullable(f.dst, f.raw); err != nil {
			writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
			return
		}
	}
	if p.Addresses != nil {
		u.AddressIDs = append([]int64{}, *p.Addresses...)
	}
	if p.Adverts != nil {
		u.AdvertIDs = append([]int64{}, *p.Adverts...)
	}
	if len(p.Avatar) > 0 {
		var fid int64
		if string(p.Avatar) != "null" {
			if err := json.Unmarshal(p.Avatar, &fid); err != nil {
				writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
				return
			}
		}
		u.AvatarID = fid
	}
	u.UpdatedAt = s.now().UTC()

	writeJSON(w, http.StatusOK, s.renderUserLocked(u, true))
}

func idsFromQuery(q url.Values) []int64 {
	var ids []int64
	for i := 0; ; i++ {
		v := q.Get(fmt.Sprintf("filters[id][$in][%d]", i))
		if v == "" {
			return ids
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
}

type addressIn struct {
	Name         string  `json:"name"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         string  `json:"city"`
	PostCode     string  `json:"postCode"`
	Country      string  `json:"country"`
	PhoneNumber  *string `json:"phoneNumber"`
}

func (in addressIn) valid() bool {
	return in.Name != "" && in.AddressLine1 != "" && in.City != "" && in.PostCode != "" && in.Country != ""
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	ids := idsFromQuery(r.URL.Query())

	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*address
	for _, a := range s.addresses {
		if ids == nil || slices.Contains(ids, a.ID) {
			list = append(list, a)
		}
	}
	slices.SortFunc(list, func(a, b *address) int { return int(a.ID - b.ID) })

	data := make([]any, 0, len(list))
	for _, a := range list {
		data = append(data, renderAddress(a))
	}
	writeJSON(w, http.StatusOK, listEnvelope(data, 1, len(data), len(data)))
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var in addressIn
	if err := readData(r, &in); err != nil || !in.valid() {
		writeError(w, http.StatusBadRequest, "ValidationError", "name, addressLine1, city, postCode and country are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	a := &address{
		ID: s.allocIDLocked(), DocumentID: uuid.NewString(),
		Name: in.Name, AddressLine1: in.AddressLine1, AddressLine2: in.AddressLine2,
		City: in.City, PostCode: in.PostCode, Country: in.Country, PhoneNumber: in.PhoneNumber,
		CreatedAt: now, UpdatedAt: now,
	}
	s.addresses[a.ID] = a
	writeJSON(w, http.StatusCreated, map[string]any{"data": renderAddress(a), "meta": map[string]any{}})
}

func (s *Server) addressByDocLocked(doc string) *address {
	for _, a := range s.addresses {
		if a.DocumentID == doc {
			return a
		}
	}
	return nil
}

// addressPatch is a partial address update: absent fields are kept, a null
// optional field is cleared.
type addressPatch struct {
	Name         *string         `json:"name"`
	AddressLine1 *string         `json:"addressLine1"`
	AddressLine2 json.RawMessage `json:"addressLine2"`
	City         *string         `json:"city"`
	PostCode     *string         `json:"postCode"`
	Country      *string         `json:"country"`
	PhoneNumber  json.RawMessage `json:"phoneNumber"`
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var p addressPatch
	if err := readData(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.addressByDocLocked(r.PathValue("documentId"))
	if a == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}

	next := *a
	for _, f := range []struct {
		dst *string
		v   *string
	}{
		{&next.Name, p.Name},
		{&next.AddressLine1, p.AddressLine1},
		{&next.City, p.City},
		{&next.PostCode, p.PostCode},
		{&next.Country, p.Country},
	} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
	if err := nullable(&next.AddressLine2, p.AddressLine2); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	if err := nullable(&next.PhoneNumber, p.PhoneNumber); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	in := addressIn{Name: next.Name, AddressLine1: next.AddressLine1, City: next.City, PostCode: next.PostCode, Country: next.Country}
	if !in.valid() {
		writeError(w, http.StatusBadRequest, "ValidationError", "name, addressLine1, city, postCode and country are required")
		return
	}

	next.UpdatedAt = s.now().UTC()
	*a = next
	writeJSON(w, http.StatusOK, map[string]any{"data": renderAddress(a), "meta": map[string]any{}})
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.addressByDocLocked(r.PathValue("documentId"))
	if a == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	delete(s.addresses, a.ID)
	w.WriteHeader(http.StatusNoContent)
}

type advertIn struct {
	Name     string  `json:"name"`
	Content  string  `json:"content"`
	Price    float64 `json:"price"`
	Currency *string `json:"currency"`
	Category *int64  `json:"category"`
	Image    *int64  `json:"image"`
}

func (s *Server) handleListAdverts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids := idsFromQuery(q)
	cat, _ := strconv.ParseInt(q.Get("filters[category][id][$eq]"), 10, 64)
	page, _ := strconv.Atoi(q.Get("pagination[page]"))
	size, _ := strconv.Atoi(q.Get("pagination[pageSize]"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 25
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*advert
	for _, a := range s.adverts {
		if ids != nil && !slices.Contains(ids, a.ID) {
			continue
		}
		if cat != 0 && a.CategoryID != cat {
			continue
		}
		list = append(list, a)
	}
	// newest first, ids break ties
	slices.SortFunc(list, func(a, b *advert) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})

	total := len(list)
	from := min((page-1)*size, total)
	to := min(from+size, total)

	data := make([]any, 0, to-from)
	for _, a := range list[from:to] {
		data = append(data, s.renderAdvertLocked(a))
	}
	writeJSON(w, http.StatusOK, listEnvelope(data, page, size, total))
}

func (s *Server) handleCreateAdvert(w http.ResponseWriter, r *http.Request) {
	var in advertIn
	if err := readData(r, &in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "ValidationError", "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	a := &advert{
		ID: s.allocIDLocked(), DocumentID: uuid.NewString(),
		CreatedAt: now, UpdatedAt: now,
	}
	applyAdvert(a, in)
	s.adverts[a.ID] = a
	writeJSON(w, http.StatusCreated, map[string]any{"data": s.renderAdvertLocked(a), "meta": map[string]any{}})
}

func applyAdvert(a *advert, in advertIn) {
	a.Name, a.Content, a.Price, a.Currency = in.Name, in.Content, in.Price, in.Currency
	a.CategoryID, a.ImageID = 0, 0
	if in.Category != nil {
		a.CategoryID = *in.Category
	}
	if in.Image != nil {
		a.ImageID = *in.Image
	}
}

func (s *Server) advertByDocLocked(doc string) *advert {
	for _, a := range s.adverts {
		if a.DocumentID == doc {
			return a
		}
	}
	return nil
}

func (s *Server) handleUpdateAdvert(w http.ResponseWriter, r *http.Request) {
	var in advertIn
	if err := readData(r, &in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "ValidationError", "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.advertByDocLocked(r.PathValue("documentId"))
	if a == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	applyAdvert(a, in)
	a.UpdatedAt = s.now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{"data": s.renderAdvertLocked(a), "meta": map[string]any{}})
}

func (s *Server) handleDeleteAdvert(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.advertByDocLocked(r.PathValue("documentId"))
	if a == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	delete(s.adverts, a.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*category, 0, len(s.categories))
	for _, c := range s.categories {
		list = append(list, c)
	}
	slices.SortFunc(list, func(a, b *category) int { return strings.Compare(a.Name, b.Name) })

	data := make([]any, 0, len(list))
	for _, c := range list {
		data = append(data, map[string]any{"id": c.ID, "documentId": c.DocumentID, "name": c.Name, "slug": c.Slug})
	}
	writeJSON(w, http.StatusOK, listEnvelope(data, 1, len(data), len(data)))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	fhs := r.MultipartForm.File["files"]
	if len(fhs) == 0 {
		writeError(w, http.StatusBadRequest, "ValidationError", "Files are empty")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, 0, len(fhs))
	for _, fh := range fhs {
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
			return
		}
		f := &file{ID: s.allocIDLocked(), Name: fh.Filename, Mime: fh.Header.Get("Content-Type"), Size: int64(len(data)), Data: data}
		s.files[f.ID] = f
		out = append(out, s.renderFileLocked(f.ID))
	}
	writeJSON(w, http.StatusCreated, out)
}

func listEnvelope(data []any, page, size, total int) map[string]any {
	pageCount := 0
	if size > 0 {
		pageCount = (total + size - 1) / size
	}
	return map[string]any{
		"data": data,
		"meta": map[string]any{
			"pagination": map[string]int{"page": page, "pageSize": size, "pageCount": pageCount, "total": total},
		},
	}
}
