package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/linking"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// ProfileService reads and edits the signed-in user's profile.
type ProfileService interface {
	// Me fetches the profile. When the remote cannot be reached the cached
	// copy is returned together with the error.
	Me(ctx context.Context) (*models.Profile, error)
	Cached(ctx context.Context) (*models.Profile, error)
	Update(ctx context.Context, u models.ProfileUpdate) (*models.Profile, error)
	// SetAvatar uploads r and makes it the profile picture. If the upload
	// worked but the profile could not be updated, the uploaded file is
	// returned with a *linking.LinkageError.
	SetAvatar(ctx context.Context, filename string, r io.Reader) (*models.UploadedFile, error)
}

type profileService struct {
	guard
	client      client.Client
	cache       *Cache
	linkTimeout time.Duration
}

func NewProfileService(c client.Client, s Session, cache *Cache, log logging.Logger, linkTimeout time.Duration) ProfileService {
	if linkTimeout <= 0 {
		linkTimeout = linking.DefaultLinkTimeout
	}
	return &profileService{
		guard:       guard{session: s, log: log.With("service", "profile")},
		client:      c,
		cache:       cache,
		linkTimeout: linkTimeout,
	}
}

func (p *profileService) Me(ctx context.Context) (*models.Profile, error) {
	id, err := p.owner(ctx)
	if err != nil {
		return nil, err
	}

	prof, err := p.client.Profile(ctx, id)
	if err != nil {
		err = p.check(ctx, err)
		if offline(err) {
			if cached, cerr := cachedProfile(ctx, p.cache, id); cerr == nil {
				p.log.Info(ctx, "remote unavailable, using cached profile", "error", err)
				return cached, err
			}
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	p.cache.Profiles.Put(ctx, *prof)
	return prof, nil
}

func (p *profileService) Cached(ctx context.Context) (*models.Profile, error) {
	id, err := p.owner(ctx)
	if err != nil {
		return nil, err
	}
	return cachedProfile(ctx, p.cache, id)
}

func (p *profileService) Update(ctx context.Context, u models.ProfileUpdate) (*models.Profile, error) {
	id, err := p.owner(ctx)
	if err != nil {
		return nil, err
	}

	patch := client.PatchFromUpdate(u)
	if patch.IsEmpty() {
		return p.Me(ctx)
	}

	prof, err := p.client.UpdateProfile(ctx, id, patch)
	if err != nil {
		return nil, &linking.MutationError{Op: linking.OpUpdate, Kind: "profile", Err: p.check(ctx, err)}
	}

	p.cache.Profiles.Put(ctx, *prof)
	p.log.Info(ctx, "profile updated", "user_id", id)
	return prof, nil
}

func (p *profileService) SetAvatar(ctx context.Context, filename string, r io.Reader) (*models.UploadedFile, error) {
	id, err := p.owner(ctx)
	if err != nil {
		return nil, err
	}

	file, err := p.client.Upload(ctx, filename, r)
	if err != nil {
		return nil, &linking.MutationError{Op: linking.OpCreate, Kind: "avatar", Err: p.check(ctx, err)}
	}

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.linkTimeout)
	defer cancel()

	prof, err := p.client.UpdateProfile(lctx, id, client.ProfilePatch{Avatar: &file.ID})
	if err != nil {
		p.log.Warn(ctx, "avatar uploaded but not set", "file_id", file.ID, "error", err)
		return file, &linking.LinkageError{Op: linking.OpLink, Kind: "avatar", ChildID: file.ID, Err: p.check(ctx, err)}
	}

	p.cache.Profiles.Put(ctx, *prof)
	p.log.Info(ctx, "avatar set", "file_id", file.ID)
	return file, nil
}
