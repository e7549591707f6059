// Package linking keeps a profile's reference lists in step with the child
// resources it owns.
//
// The remote API stores ownership only on the profile side, as lists of
// child ids. Creating or deleting a child therefore takes two remote calls,
// one on the child and one on the profile, with no transaction around them.
// Orchestrator runs that sequence for any kind of child and reports a
// half-finished result as a *LinkageError alongside the child, never
// silently.
//
// Concurrent sessions editing the same profile can lose each other's
// updates: each reads the list, changes it and writes it back whole.
package linking

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// DefaultLinkTimeout bounds the profile re-read and update that follow a
// successful child mutation.
const DefaultLinkTimeout = 15 * time.Second

// ProfileReader reads the current profile from the remote, never from cache.
type ProfileReader interface {
	Profile(ctx context.Context, id int64) (*models.Profile, error)
}

// Authenticator reports whether a valid session exists.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// Kind describes one child resource type to the orchestrator. D is the draft
// used for creation and T the stored resource.
type Kind[D, T any] struct {
	Name   string
	Create func(ctx context.Context, draft D) (T, error)
	Update func(ctx context.Context, child T) (T, error)
	Delete func(ctx context.Context, ref models.Ref) error
	RefOf  func(child T) models.Ref
	// Refs returns the profile's list for this kind.
	Refs func(p *models.Profile) []models.Ref
	// Relink replaces the owner's list for this kind with ids.
	Relink func(ctx context.Context, owner int64, ids []int64) (*models.Profile, error)
}

type Orchestrator[D, T any] struct {
	kind        Kind[D, T]
	profiles    ProfileReader
	auth        Authenticator
	log         logging.Logger
	linkTimeout time.Duration
}

func New[D, T any](kind Kind[D, T], profiles ProfileReader, auth Authenticator, log logging.Logger, linkTimeout time.Duration) *Orchestrator[D, T] {
	if linkTimeout <= 0 {
		linkTimeout = DefaultLinkTimeout
	}
	return &Orchestrator[D, T]{
		kind:        kind,
		profiles:    profiles,
		auth:        auth,
		log:         log.With("kind", kind.Name),
		linkTimeout: linkTimeout,
	}
}

// detached keeps the profile step running after the caller goes away, so a
// created or deleted child is not left without a link attempt.
func (o *Orchestrator[D, T]) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.linkTimeout)
}

// Create creates the child and appends its id to the owner's list. If the
// child was created but the list could not be updated, the child is returned
// together with a *LinkageError.
func (o *Orchestrator[D, T]) Create(ctx context.Context, draft D, owner int64) (T, error) {
	var zero T
	if !o.auth.IsAuthenticated(ctx) {
		return zero, common.ErrUnauthenticated
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	child, err := o.kind.Create(ctx, draft)
	if err != nil {
		return zero, &MutationError{Op: OpCreate, Kind: o.kind.Name, Err: err}
	}
	ref := o.kind.RefOf(child)

	if ctx.Err() != nil {
		o.log.Info(ctx, "caller gone after create, linking anyway", "id", ref.ID)
	}
	lctx, cancel := o.detached(ctx)
	defer cancel()

	if err := o.link(lctx, owner, ref.ID); err != nil {
		o.log.Warn(ctx, "created but not linked", "id", ref.ID, "owner", owner, "error", err)
		return child, &LinkageError{Op: OpLink, Kind: o.kind.Name, ChildID: ref.ID, Err: err}
	}

	o.log.Info(ctx, "created and linked", "id", ref.ID, "owner", owner)
	return child, nil
}

func (o *Orchestrator[D, T]) link(ctx context.Context, owner, id int64) error {
	p, err := o.profiles.Profile(ctx, owner)
	if err != nil {
		return err
	}
	ids := AppendID(models.IDs(o.kind.Refs(p)), id)
	_, err = o.kind.Relink(ctx, owner, ids)
	return err
}

// Update changes the child in place; the profile is not touched.
func (o *Orchestrator[D, T]) Update(ctx context.Context, child T) (T, error) {
	var zero T
	if !o.auth.IsAuthenticated(ctx) {
		return zero, common.ErrUnauthenticated
	}

	updated, err := o.kind.Update(ctx, child)
	if err != nil {
		return zero, &MutationError{Op: OpUpdate, Kind: o.kind.Name, Err: err}
	}
	return updated, nil
}

// Delete removes a child owned by owner and drops it from the owner's list.
// A child the profile does not list is treated as already gone: nothing is
// deleted remotely and nil is returned. A child the API no longer has is
// still unlinked.
func (o *Orchestrator[D, T]) Delete(ctx context.Context, childID, owner int64) error {
	if !o.auth.IsAuthenticated(ctx) {
		return common.ErrUnauthenticated
	}

	p, err := o.profiles.Profile(ctx, owner)
	if err != nil {
		return err
	}
	refs := o.kind.Refs(p)
	ref, ok := models.FindRef(refs, childID)
	if !ok {
		o.log.Info(ctx, "not linked to profile, nothing to delete", "id", childID, "owner", owner)
		return nil
	}

	if err := o.kind.Delete(ctx, ref); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return &MutationError{Op: OpDelete, Kind: o.kind.Name, Err: err}
		}
		o.log.Info(ctx, "already gone remotely, unlinking", "id", childID, "owner", owner)
	}

	lctx, cancel := o.detached(ctx)
	defer cancel()

	if _, err := o.kind.Relink(lctx, owner, RemoveID(models.IDs(refs), childID)); err != nil {
		o.log.Warn(ctx, "deleted but not unlinked", "id", childID, "owner", owner, "error", err)
		return &LinkageError{Op: OpUnlink, Kind: o.kind.Name, ChildID: childID, Err: err}
	}

	o.log.Info(ctx, "deleted and unlinked", "id", childID, "owner", owner)
	return nil
}

// AppendID returns ids with id added at the end unless already present.
// Existing order is kept.
func AppendID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids)+1)
	out = append(out, ids...)
	if slices.Contains(out, id) {
		return out
	}
	return append(out, id)
}

// RemoveID returns ids without any occurrence of id. The result is never nil.
func RemoveID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
