package models

import "time"

// AdvertDraft is the user input for a new advert. ImageID references a file
// returned by the upload endpoint; 0 means no image.
type AdvertDraft struct {
	Name       string
	Content    string
	Price      float64
	Currency   string
	CategoryID int64
	ImageID    int64
}

// Advert is a classified advert. Adverts listed in a profile belong to it.
type Advert struct {
	ID         int64
	DocumentID string
	Name       string
	Content    string
	Price      float64
	Currency   string
	CategoryID int64
	Image      *UploadedFile
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (a Advert) Ref() Ref { return Ref{ID: a.ID, DocumentID: a.DocumentID} }

// Draft returns the editable fields of a.
func (a Advert) Draft() AdvertDraft {
	d := AdvertDraft{
		Name:       a.Name,
		Content:    a.Content,
		Price:      a.Price,
		Currency:   a.Currency,
		CategoryID: a.CategoryID,
	}
	if a.Image != nil {
		d.ImageID = a.Image.ID
	}
	return d
}
