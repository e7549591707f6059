package linking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

type note struct {
	ID   int64
	Text string
}

// remote is an in-memory stand-in for the profile and child endpoints.
type remote struct {
	mu       sync.Mutex
	nextID   int64
	children map[int64]note
	links    []int64
	owner    int64

	failCreate  error
	failUpdate  error
	failDelete  error
	failProfile error
	failRelink  error

	creates, deletes, relinks int
	relinkCtxErr              error
	onCreate                  func()
}

func newRemote(owner int64) *remote {
	return &remote{nextID: 1, children: map[int64]note{}, links: []int64{}, owner: owner}
}

func (r *remote) Profile(ctx context.Context, id int64) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failProfile != nil {
		return nil, r.failProfile
	}
	if id != r.owner {
		return nil, common.ErrNotFound
	}
	p := &models.Profile{ID: id}
	for _, l := range r.links {
		p.Addresses = append(p.Addresses, models.Ref{ID: l, DocumentID: fmt.Sprintf("doc-%d", l)})
	}
	return p, nil
}

func (r *remote) kind() Kind[string, note] {
	return Kind[string, note]{
		Name: "note",
		Create: func(ctx context.Context, text string) (note, error) {
			r.mu.Lock()
			r.creates++
			if r.failCreate != nil {
				r.mu.Unlock()
				return note{}, r.failCreate
			}
			n := note{ID: r.nextID, Text: text}
			r.nextID++
			r.children[n.ID] = n
			hook := r.onCreate
			r.mu.Unlock()
			if hook != nil {
				hook()
			}
			return n, nil
		},
		Update: func(ctx context.Context, n note) (note, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.failUpdate != nil {
				return note{}, r.failUpdate
			}
			r.children[n.ID] = n
			return n, nil
		},
		Delete: func(ctx context.Context, ref models.Ref) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.deletes++
			if r.failDelete != nil {
				return r.failDelete
			}
			if ref.DocumentID != fmt.Sprintf("doc-%d", ref.ID) {
				return fmt.Errorf("bad document id %q", ref.DocumentID)
			}
			delete(r.children, ref.ID)
			return nil
		},
		RefOf: func(n note) models.Ref { return models.Ref{ID: n.ID, DocumentID: fmt.Sprintf("doc-%d", n.ID)} },
		Refs:  func(p *models.Profile) []models.Ref { return p.Addresses },
		Relink: func(ctx context.Context, owner int64, ids []int64) (*models.Profile, error) {
			r.mu.Lock()
			r.relinks++
			r.relinkCtxErr = ctx.Err()
			if r.failRelink != nil {
				r.mu.Unlock()
				return nil, r.failRelink
			}
			r.links = slices.Clone(ids)
			r.mu.Unlock()
			return r.Profile(ctx, owner)
		},
	}
}

func (r *remote) linked() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.links)
}

type authState bool

func (a authState) IsAuthenticated(context.Context) bool { return bool(a) }

func newOrchestrator(r *remote, authed bool) *Orchestrator[string, note] {
	return New(r.kind(), r, authState(authed), logging.Nop(), time.Second)
}

func TestCreate_LinksNewChild(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{3}
	r.nextID = 7
	o := newOrchestrator(r, true)

	n, err := o.Create(context.Background(), "London, E1 6AN, UK", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n.ID)
	assert.Equal(t, []int64{3, 7}, r.linked())
}

func TestCreate_LinkFailureReturnsChildAndLinkageError(t *testing.T) {
	r := newRemote(42)
	r.nextID = 7
	r.failRelink = errors.New("500 internal")
	o := newOrchestrator(r, true)

	n, err := o.Create(context.Background(), "x", 42)
	require.Error(t, err)
	assert.Equal(t, int64(7), n.ID, "created child must still be returned")
	assert.ErrorIs(t, err, common.ErrLinkageInconsistent)
	assert.NotErrorIs(t, err, common.ErrRemoteMutationFailed)

	var le *LinkageError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, OpLink, le.Op)
	assert.Equal(t, int64(7), le.ChildID)
	assert.Empty(t, r.linked())
	assert.Contains(t, r.children, int64(7), "child is not rolled back")
}

func TestCreate_ProfileReadFailureIsLinkageError(t *testing.T) {
	r := newRemote(42)
	r.failProfile = errors.New("boom")
	o := newOrchestrator(r, true)

	n, err := o.Create(context.Background(), "x", 42)
	assert.ErrorIs(t, err, common.ErrLinkageInconsistent)
	assert.Equal(t, int64(1), n.ID)
	assert.Zero(t, r.relinks)
}

func TestCreate_MutationFailureLeavesProfileAlone(t *testing.T) {
	r := newRemote(42)
	r.failCreate = errors.New("400 bad request")
	o := newOrchestrator(r, true)

	_, err := o.Create(context.Background(), "x", 42)
	assert.ErrorIs(t, err, common.ErrRemoteMutationFailed)
	assert.NotErrorIs(t, err, common.ErrLinkageInconsistent)
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, OpCreate, me.Op)
	assert.Zero(t, r.relinks)
}

func TestCreate_DoesNotDuplicateExistingID(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1}
	o := newOrchestrator(r, true)

	_, err := o.Create(context.Background(), "x", 42)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, r.linked())
}

func TestCreate_CancelledAfterCreateStillLinks(t *testing.T) {
	r := newRemote(42)
	ctx, cancel := context.WithCancel(context.Background())
	r.onCreate = cancel
	o := newOrchestrator(r, true)

	n, err := o.Create(ctx, "x", 42)
	require.NoError(t, err)
	assert.Equal(t, []int64{n.ID}, r.linked())
	assert.NoError(t, r.relinkCtxErr)
}

func TestCreate_CancelledBeforeStartDoesNothing(t *testing.T) {
	r := newRemote(42)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newOrchestrator(r, true)

	_, err := o.Create(ctx, "x", 42)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.creates)
}

func TestUnauthenticated_NoRemoteCalls(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1}
	o := newOrchestrator(r, false)
	ctx := context.Background()

	_, err := o.Create(ctx, "x", 42)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	_, err = o.Update(ctx, note{ID: 1})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	err = o.Delete(ctx, 1, 42)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	assert.Zero(t, r.creates)
	assert.Zero(t, r.deletes)
	assert.Zero(t, r.relinks)
}

func TestUpdate(t *testing.T) {
	r := newRemote(42)
	o := newOrchestrator(r, true)

	got, err := o.Update(context.Background(), note{ID: 5, Text: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
	assert.Zero(t, r.relinks)

	r.failUpdate = errors.New("nope")
	_, err = o.Update(context.Background(), note{ID: 5})
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, OpUpdate, me.Op)
}

func TestDelete_RemovesAndUnlinks(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1, 2, 3}
	r.children[2] = note{ID: 2}
	o := newOrchestrator(r, true)

	require.NoError(t, o.Delete(context.Background(), 2, 42))
	assert.Equal(t, []int64{1, 3}, r.linked())
	assert.NotContains(t, r.children, int64(2))
}

func TestDelete_LastChildClearsList(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{9}
	o := newOrchestrator(r, true)

	require.NoError(t, o.Delete(context.Background(), 9, 42))
	got := r.linked()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDelete_UnlinkedIDIsNoOp(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1}
	o := newOrchestrator(r, true)

	require.NoError(t, o.Delete(context.Background(), 99, 42))
	assert.Zero(t, r.deletes, "no remote delete for a child the profile does not own")
	assert.Zero(t, r.relinks)
	assert.Equal(t, []int64{1}, r.linked())
}

func TestDelete_ProfileReadFailure(t *testing.T) {
	r := newRemote(42)
	r.failProfile = common.ErrNetworkUnavailable
	o := newOrchestrator(r, true)

	err := o.Delete(context.Background(), 1, 42)
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	assert.Zero(t, r.deletes)
}

func TestDelete_MutationFailureKeepsLink(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1}
	r.failDelete = errors.New("500")
	o := newOrchestrator(r, true)

	err := o.Delete(context.Background(), 1, 42)
	assert.ErrorIs(t, err, common.ErrRemoteMutationFailed)
	assert.Equal(t, []int64{1}, r.linked())
	assert.Zero(t, r.relinks)
}

func TestDelete_ChildAlreadyGoneStillUnlinks(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1, 2}
	r.failDelete = fmt.Errorf("DELETE /api/notes/doc-2: %w", common.ErrNotFound)
	o := newOrchestrator(r, true)

	require.NoError(t, o.Delete(context.Background(), 2, 42))
	assert.Equal(t, 1, r.deletes)
	assert.Equal(t, 1, r.relinks)
	assert.Equal(t, []int64{1}, r.linked())
}

func TestDelete_UnlinkFailure(t *testing.T) {
	r := newRemote(42)
	r.links = []int64{1, 2}
	r.failRelink = errors.New("500")
	o := newOrchestrator(r, true)

	err := o.Delete(context.Background(), 2, 42)
	assert.ErrorIs(t, err, common.ErrLinkageInconsistent)
	var le *LinkageError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, OpUnlink, le.Op)
	assert.Equal(t, int64(2), le.ChildID)
	assert.Equal(t, 1, r.deletes)
}

func TestAppendRemoveID(t *testing.T) {
	in := []int64{4, 2}
	out := AppendID(in, 9)
	assert.Equal(t, []int64{4, 2, 9}, out)
	assert.Equal(t, []int64{4, 2}, in, "input must not be modified")
	assert.Equal(t, []int64{4, 2}, AppendID(in, 2))
	assert.Equal(t, []int64{7}, AppendID(nil, 7))

	assert.Equal(t, []int64{4}, RemoveID(in, 2))
	assert.NotNil(t, RemoveID(nil, 1))
	assert.Equal(t, []int64{4, 2}, RemoveID(in, 5))
}

func TestErrorMessages(t *testing.T) {
	le := &LinkageError{Op: OpLink, Kind: "address", ChildID: 7, Err: errors.New("500")}
	assert.Equal(t, "address 7 created but not linked to profile: 500", le.Error())
	le.Op = OpUnlink
	assert.Equal(t, "address 7 deleted but not unlinked from profile: 500", le.Error())

	cause := errors.New("cause")
	me := &MutationError{Op: OpCreate, Kind: "advert", Err: cause}
	assert.Equal(t, "create advert: cause", me.Error())
	assert.ErrorIs(t, me, cause)
}
