package services

import "github.com/dmitrijs2005/bazaar/internal/client/models"

// Sample rows use negative ids so they never collide with remote ones and
// are dropped by the first successful fetch.

func DefaultCategories() []models.Category {
	return []models.Category{
		{ID: -1, Name: "Electronics", Slug: "electronics"},
		{ID: -2, Name: "Furniture", Slug: "furniture"},
		{ID: -3, Name: "Clothing", Slug: "clothing"},
		{ID: -4, Name: "Books", Slug: "books"},
		{ID: -5, Name: "Sports", Slug: "sports"},
		{ID: -6, Name: "Other", Slug: "other"},
	}
}

func SampleAdverts() []models.Advert {
	return []models.Advert{
		{
			ID:         -1,
			Name:       "Road bike, 54cm frame",
			Content:    "Aluminium frame, 105 groupset, recently serviced.",
			Price:      350,
			Currency:   "GBP",
			CategoryID: -5,
		},
		{
			ID:         -2,
			Name:       "Oak bookshelf",
			Content:    "Five shelves, 180cm tall. Collection only.",
			Price:      60,
			Currency:   "GBP",
			CategoryID: -2,
		},
	}
}
