package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/filex"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// UploadService stores files through the upload endpoint, for use as advert
// images.
type UploadService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadedFile, error)
	UploadFile(ctx context.Context, path string) (*models.UploadedFile, error)
}

type uploadService struct {
	guard
	client client.Client
}

func NewUploadService(c client.Client, s Session, log logging.Logger) UploadService {
	return &uploadService{guard: guard{session: s, log: log.With("service", "upload")}, client: c}
}

func (u *uploadService) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadedFile, error) {
	if _, err := u.owner(ctx); err != nil {
		return nil, err
	}

	f, err := u.client.Upload(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, u.check(ctx, err))
	}
	u.log.Info(ctx, "uploaded", "file_id", f.ID, "name", f.Name, "size", f.Size)
	return f, nil
}

func (u *uploadService) UploadFile(ctx context.Context, path string) (*models.UploadedFile, error) {
	up, err := filex.ReadUpload(path)
	if err != nil {
		return nil, err
	}
	defer up.Close()

	return u.Upload(ctx, up.Name, up)
}
