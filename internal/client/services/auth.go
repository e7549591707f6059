package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// AuthService signs the user in and out.
//
// Every call that yields a token saves it in the session and then caches the
// returned profile. Logout always ends the local session, even when the
// remote call fails.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*models.Profile, error)
	Register(ctx context.Context, username, email, password string) (*models.Profile, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*models.Profile, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password, confirmation string) (*models.Profile, error)
	ChangePassword(ctx context.Context, current, password, confirmation string) (*models.Profile, error)
	Restore(ctx context.Context) (bool, error)
	IsAuthenticated(ctx context.Context) bool
}

type authService struct {
	guard
	client client.Client
	cache  *Cache
}

func NewAuthService(c client.Client, s Session, cache *Cache, log logging.Logger) AuthService {
	return &authService{
		guard:  guard{session: s, log: log.With("service", "auth")},
		client: c,
		cache:  cache,
	}
}

func (a *authService) signIn(ctx context.Context, res *client.AuthResult) (*models.Profile, error) {
	id := res.Profile.ID
	if id == 0 {
		var ok bool
		if id, ok = client.TokenUserID(res.Token); !ok {
			return nil, errors.New("token carries no user id")
		}
	}

	if prev := a.session.UserID(); prev != 0 && prev != id {
		a.cache.ClearUser(ctx)
	}
	a.session.SaveToken(ctx, res.Token, id)
	if res.Profile.ID != 0 {
		a.cache.Profiles.Put(ctx, res.Profile)
	}

	a.log.Info(ctx, "signed in", "user_id", id)
	p := res.Profile
	return &p, nil
}

func (a *authService) Login(ctx context.Context, identifier, password string) (*models.Profile, error) {
	res, err := a.client.Login(ctx, identifier, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return a.signIn(ctx, res)
}

func (a *authService) Register(ctx context.Context, username, email, password string) (*models.Profile, error) {
	res, err := a.client.Register(ctx, username, email, password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return a.signIn(ctx, res)
}

// Logout tells the remote on a best-effort basis, then clears the session
// and the user's cached data.
func (a *authService) Logout(ctx context.Context) error {
	if a.session.IsAuthenticated(ctx) {
		if err := a.client.Logout(ctx); err != nil {
			a.log.Warn(ctx, "remote logout failed", "error", err)
		}
	}
	a.session.Clear(ctx)
	a.cache.ClearUser(ctx)
	a.log.Info(ctx, "signed out")
	return nil
}

func (a *authService) Refresh(ctx context.Context) (*models.Profile, error) {
	res, err := a.client.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", a.check(ctx, err))
	}
	return a.signIn(ctx, res)
}

func (a *authService) ForgotPassword(ctx context.Context, email string) error {
	if err := a.client.ForgotPassword(ctx, email); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

func (a *authService) ResetPassword(ctx context.Context, code, password, confirmation string) (*models.Profile, error) {
	res, err := a.client.ResetPassword(ctx, code, password, confirmation)
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	return a.signIn(ctx, res)
}

func (a *authService) ChangePassword(ctx context.Context, current, password, confirmation string) (*models.Profile, error) {
	res, err := a.client.ChangePassword(ctx, current, password, confirmation)
	if err != nil {
		return nil, fmt.Errorf("change password: %w", a.check(ctx, err))
	}
	return a.signIn(ctx, res)
}

// Restore resumes a session persisted by an earlier run.
func (a *authService) Restore(ctx context.Context) (bool, error) {
	ok, err := a.session.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "could not restore session", "error", err)
		return false, err
	}
	return ok, nil
}

func (a *authService) IsAuthenticated(ctx context.Context) bool {
	return a.session.IsAuthenticated(ctx)
}
