package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
)

// AuthResult is returned by the endpoints that issue a token.
type AuthResult struct {
	Token   string
	Profile models.Profile
}

// AdvertQuery filters the advert listing. A nil IDs slice means no id filter.
type AdvertQuery struct {
	IDs        []int64
	CategoryID int64
	Page       int
	PageSize   int
}

// AdvertPage is one page of adverts with its paging metadata.
type AdvertPage struct {
	Adverts    []models.Advert
	Pagination models.Pagination
}

// Client is the remote resource API used by the services.
type Client interface {
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password, confirmation string) (*AuthResult, error)
	ChangePassword(ctx context.Context, current, password, confirmation string) (*AuthResult, error)
	Refresh(ctx context.Context) (*AuthResult, error)
	Logout(ctx context.Context) error

	Profile(ctx context.Context, id int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id int64, patch ProfilePatch) (*models.Profile, error)

	CreateAddress(ctx context.Context, draft models.AddressDraft) (models.Address, error)
	UpdateAddress(ctx context.Context, a models.Address) (models.Address, error)
	DeleteAddress(ctx context.Context, ref models.Ref) error
	ListAddresses(ctx context.Context, ids []int64) ([]models.Address, error)

	CreateAdvert(ctx context.Context, draft models.AdvertDraft) (models.Advert, error)
	UpdateAdvert(ctx context.Context, a models.Advert) (models.Advert, error)
	DeleteAdvert(ctx context.Context, ref models.Ref) error
	ListAdverts(ctx context.Context, q AdvertQuery) (*AdvertPage, error)

	ListCategories(ctx context.Context) ([]models.Category, error)

	Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadedFile, error)
}
